package store

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// CodenamePattern is the public handle contract: ADJECTIVE-NOUN-NNNN.
var CodenamePattern = regexp.MustCompile(`^[A-Z]+-[A-Z]+-[0-9]{4}$`)

const codenameMaxAttempts = 50

var codenameAdjectives = []string{
	"AMBER", "ARCTIC", "ASHEN", "BLACK", "BRAVE", "BRONZE", "BURNT",
	"CALM", "CLEVER", "COBALT", "COLD", "CRIMSON", "CROOKED", "DARK",
	"DISTANT", "DUSTY", "EARLY", "FADED", "FERAL", "FROZEN", "GILDED",
	"GREY", "HIDDEN", "HOLLOW", "HUMBLE", "IRON", "IVORY", "JADE",
	"LONE", "LUCKY", "MIDNIGHT", "NIMBLE", "OBLIQUE", "PALE", "QUIET",
	"RAPID", "RUSTY", "SABLE", "SCARLET", "SILENT", "SILVER", "SOLEMN",
	"STILL", "SWIFT", "TWILIGHT", "VELVET", "WANING", "WINTER",
}

var codenameNouns = []string{
	"ANCHOR", "ARROW", "BADGER", "BEACON", "BRIDGE", "CANYON", "CIPHER",
	"COMET", "CONDOR", "CROW", "DAGGER", "EMBER", "FALCON", "FERRY",
	"FLARE", "FOX", "GARNET", "HARBOR", "HAWK", "HERON", "HOUND",
	"JACKAL", "KESTREL", "LANTERN", "LYNX", "MARTEN", "MIRROR", "NEEDLE",
	"ORCHID", "OSPREY", "OTTER", "OWL", "PIKE", "PRISM", "RAVEN",
	"RIDGE", "RIVER", "SADDLE", "SHADOW", "SPARROW", "SPIRE", "STORK",
	"SUMMIT", "TALON", "THORN", "VIPER", "WILLOW", "WREN",
}

// NormalizeCodename canonicalizes user input: codenames are matched
// case-insensitively but stored uppercase.
func NormalizeCodename(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// IsCodename reports whether a canonicalized string matches the codename
// contract.
func IsCodename(s string) bool {
	return CodenamePattern.MatchString(s)
}

// GenerateCodename returns a fresh ADJECTIVE-NOUN-NNNN handle, retrying
// on collisions against the provided exists check.
func GenerateCodename(exists func(string) (bool, error)) (string, error) {
	for i := 0; i < codenameMaxAttempts; i++ {
		adjective, err := randomWord(codenameAdjectives)
		if err != nil {
			return "", err
		}
		noun, err := randomWord(codenameNouns)
		if err != nil {
			return "", err
		}
		digits, err := randomInt(10000)
		if err != nil {
			return "", err
		}

		codename := fmt.Sprintf("%s-%s-%04d", adjective, noun, digits)
		if exists == nil {
			return codename, nil
		}
		taken, err := exists(codename)
		if err != nil {
			return "", err
		}
		if !taken {
			return codename, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique codename")
}

func randomWord(words []string) (string, error) {
	idx, err := randomInt(len(words))
	if err != nil {
		return "", err
	}
	return words[idx], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
