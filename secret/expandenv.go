package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands $NAME and ${NAME} from the environment. Every
// ${NAME} must be set; $NAME expands to "" when unset. $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	return expandEnv(s, os.LookupEnv)
}

func expandEnv(s string, lookup func(string) (string, bool)) (string, error) {
	const dollar = "\x00RECIPEOPS_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	s = os.Expand(s, func(name string) string {
		v, _ := lookup(name)
		return v
	})
	return strings.ReplaceAll(s, dollar, "$"), nil
}
