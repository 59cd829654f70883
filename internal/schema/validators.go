package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Named validators let schema files reference validation rules by name
// instead of embedding code. Parameterized forms use a colon, for example
// "oneof:small|medium|large" or "maxlen:64".

// ValidatorFunc is the predicate shape shared with models.Setting.Validate.
type ValidatorFunc func(value string) bool

var namedValidators = map[string]ValidatorFunc{
	"nonempty": func(v string) bool { return strings.TrimSpace(v) != "" },
	"url": func(v string) bool {
		u, err := url.Parse(v)
		return err == nil && u.Scheme != "" && u.Host != ""
	},
	"email": func(v string) bool {
		_, err := mail.ParseAddress(v)
		return err == nil
	},
	"bool": func(v string) bool {
		_, err := strconv.ParseBool(strings.ToLower(v))
		return err == nil
	},
	"int": func(v string) bool {
		_, err := strconv.Atoi(strings.TrimSpace(v))
		return err == nil
	},
}

// LookupValidator resolves a validator reference from a schema file.
func LookupValidator(ref string) (ValidatorFunc, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if fn, ok := namedValidators[ref]; ok {
		return fn, nil
	}
	name, arg, found := strings.Cut(ref, ":")
	if !found {
		return nil, fmt.Errorf("unknown validator %q", ref)
	}
	switch name {
	case "oneof":
		allowed := make(map[string]bool)
		for _, opt := range strings.Split(arg, "|") {
			allowed[strings.TrimSpace(opt)] = true
		}
		return func(v string) bool { return allowed[strings.TrimSpace(v)] }, nil
	case "regex":
		re, err := regexp.Compile(arg)
		if err != nil {
			return nil, fmt.Errorf("validator %q: %w", ref, err)
		}
		return func(v string) bool { return re.MatchString(v) }, nil
	case "maxlen":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("validator %q: bad length", ref)
		}
		return func(v string) bool { return len(v) <= n }, nil
	}
	return nil, fmt.Errorf("unknown validator %q", ref)
}
