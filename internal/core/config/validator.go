package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	apperrors "depgraph/internal/core/errors"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
)

var (
	ErrConfigFile    = errors.New("config file error")
	ErrPackageName   = errors.New("invalid package name")
	ErrRepositoryURL = errors.New("invalid repository url")
	ErrTestMode      = errors.New("invalid test mode")
	ErrLocalPath     = errors.New("invalid local path")
	ErrInvalidValue  = errors.New("invalid config value")
)

// configValidate carries the struct tag rules plus the "glob" rule used for
// exclude patterns.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("glob", validateGlob)
}

func validateGlob(fl validator.FieldLevel) bool {
	_, err := glob.Compile(fl.Field().String())
	return err == nil
}

func wrapConfig(err error) error {
	return apperrors.Wrap(err, apperrors.CodeConfig, "invalid configuration")
}

// validateRaw checks presence and types of the required keys before the
// typed decode, so a missing or mistyped key maps to its own sentinel
// instead of a generic decode failure.
func validateRaw(raw map[string]any) error {
	pkg, _ := raw["package"].(map[string]any)
	name, ok := pkg["name"]
	if !ok {
		return fmt.Errorf("%w: missing 'package.name'", ErrPackageName)
	}
	if s, ok := name.(string); !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: package name must be a non-empty string", ErrPackageName)
	}

	repo, ok := raw["repository"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: missing [repository] section", ErrRepositoryURL)
	}
	u, ok := repo["url"]
	if !ok {
		return fmt.Errorf("%w: missing 'repository.url'", ErrRepositoryURL)
	}
	if s, ok := u.(string); !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: repository url must be a non-empty string", ErrRepositoryURL)
	}

	tm, ok := repo["test_mode"]
	if !ok {
		return fmt.Errorf("%w: missing 'repository.test_mode'", ErrTestMode)
	}
	testMode, ok := tm.(bool)
	if !ok {
		return fmt.Errorf("%w: test_mode must be a boolean", ErrTestMode)
	}

	if testMode {
		lp, ok := repo["local_path"]
		if !ok {
			return fmt.Errorf("%w: 'repository.local_path' is required in test mode", ErrLocalPath)
		}
		if s, ok := lp.(string); !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: local path must be a non-empty string", ErrLocalPath)
		}
	}
	return nil
}

// Validate runs the struct tag rules and the checks that need the
// filesystem or URL parsing. It is also used after CLI overrides.
func Validate(cfg *Config) error {
	if err := configValidate.Struct(cfg); err != nil {
		return wrapConfig(translateValidation(err))
	}

	if cfg.Repository.TestMode {
		if _, err := os.Stat(cfg.Repository.LocalPath); err != nil {
			return apperrors.AddContext(
				wrapConfig(fmt.Errorf("%w: local path does not exist: %s", ErrLocalPath, cfg.Repository.LocalPath)),
				apperrors.CtxPath, cfg.Repository.LocalPath)
		}
		return nil
	}

	parsed, err := url.Parse(cfg.Repository.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return wrapConfig(fmt.Errorf("%w: %q must be an http(s) URL in live mode", ErrRepositoryURL, cfg.Repository.URL))
	}
	return nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	sentinel := ErrInvalidValue
	switch {
	case strings.HasPrefix(field, "Package."):
		sentinel = ErrPackageName
	case field == "Repository.URL":
		sentinel = ErrRepositoryURL
	case field == "Repository.LocalPath":
		sentinel = ErrLocalPath
	}

	if fe.Param() != "" {
		return fmt.Errorf("%w: %s failed %s=%s (got %v)", sentinel, field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%w: %s failed %s (got %v)", sentinel, field, fe.Tag(), fe.Value())
}
