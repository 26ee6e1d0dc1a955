package statement

import (
	"encoding/hex"
	"errors"
	"strings"

	"crocus/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// descriptionLimit is the number of description runes in a fingerprint.
const descriptionLimit = 64

// ErrZeroAmount is returned for rows that move no money.
var ErrZeroAmount = errors.New("statement: zero amount")

// FingerprintInput holds the fields that identify a statement movement.
type FingerprintInput struct {
	AccountID   string
	Date        string
	Kind        models.MovementKind
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// Fingerprint returns the deterministic dedup key of a movement. The
// amount is its magnitude with two decimals and the description is
// normalized and cut to 64 runes.
func Fingerprint(in FingerprintInput) string {
	desc := []rune(NormalizeDescription(in.Description))
	if len(desc) > descriptionLimit {
		desc = desc[:descriptionLimit]
	}
	return strings.Join([]string{
		in.AccountID,
		in.Date,
		string(in.Kind),
		in.Amount.Abs().StringFixed(2),
		strings.ToUpper(strings.TrimSpace(in.Currency)),
		string(desc),
	}, "|")
}

// FingerprintKey is a fixed-length digest of a fingerprint for indexing.
func FingerprintKey(fingerprint string) string {
	sum := blake2b.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// KindFromAmount classifies a signed amount and returns its magnitude.
func KindFromAmount(amount decimal.Decimal) (models.MovementKind, decimal.Decimal, error) {
	switch amount.Sign() {
	case 1:
		return models.MovementIn, amount, nil
	case -1:
		return models.MovementOut, amount.Abs(), nil
	default:
		return "", decimal.Zero, ErrZeroAmount
	}
}
