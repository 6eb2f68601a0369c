package cache

import (
	"regexp"
	"testing"
)

var hexKey = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestFingerprint_KnownValues(t *testing.T) {
	tests := []struct {
		name         string
		dish         string
		servings     int
		restrictions []string
		want         string
	}{
		{"no restrictions", "Chocolate Cake", 4, nil, "51069aa397592fbe791fa16d4cef7afd"},
		{"sorted restrictions", "chocolate cake", 4, []string{"vegan", "gluten-free"}, "9ab28c64f0689ec2c54767cae0c2fa15"},
		{"trimmed", "  pasta\t", 2, []string{}, "d242cd4b2efbefaf5b638823d16ca2f6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.dish, tt.servings, tt.restrictions); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprint_Normalization(t *testing.T) {
	a := Fingerprint("Chocolate Cake", 4, []string{"vegan", "gluten-free"})
	b := Fingerprint("  chocolate cake ", 4, []string{"gluten-free", "vegan"})
	if a != b {
		t.Errorf("normalized inputs produced different keys: %s vs %s", a, b)
	}
	if !hexKey.MatchString(a) {
		t.Errorf("key %q is not 32 lowercase hex characters", a)
	}
}

func TestFingerprint_Distinguishes(t *testing.T) {
	base := Fingerprint("chocolate cake", 4, nil)
	others := map[string]string{
		"servings":         Fingerprint("chocolate cake", 5, nil),
		"restriction":      Fingerprint("chocolate cake", 4, []string{"vegan"}),
		"restriction case": Fingerprint("chocolate cake", 4, []string{"Vegan"}),
		"name":             Fingerprint("chocolate cakes", 4, nil),
	}
	for name, k := range others {
		if k == base {
			t.Errorf("%s change did not change the key", name)
		}
	}
	if Fingerprint("x", 1, []string{"Vegan"}) == Fingerprint("x", 1, []string{"vegan"}) {
		t.Error("restriction values must not be case folded")
	}
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	in := []string{"vegan", "dairy-free"}
	_ = Fingerprint("soup", 2, in)
	if in[0] != "vegan" || in[1] != "dairy-free" {
		t.Errorf("Fingerprint reordered caller slice: %v", in)
	}
}

func TestRecipeKeyer_DelegatesToFingerprint(t *testing.T) {
	var k Keyer = NewRecipeKeyer()
	if got, want := k.Key("Soup", 3, []string{"b", "a"}), Fingerprint("soup", 3, []string{"a", "b"}); got != want {
		t.Errorf("Key() = %s, want %s", got, want)
	}
}
