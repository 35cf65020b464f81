package usecase

import (
	"fmt"
	"strings"

	"newsroom/domain/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return nil
}

func platformSet(platforms []string) map[string]struct{} {
	m := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		m[strings.ToLower(p)] = struct{}{}
	}
	return m
}

// normalizePlatforms lowercases and dedupes the request list, rejecting names outside allowed.
func normalizePlatforms(platforms []string, allowed map[string]struct{}) ([]string, error) {
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", model.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := allowed[p]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
