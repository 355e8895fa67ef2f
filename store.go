package whiteboard

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound       = errors.New("whiteboard: node not found")
	ErrConnectionNotFound = errors.New("whiteboard: connection not found")
	ErrSettingNotFound    = errors.New("whiteboard: setting not found")
	ErrMissingAPIKey      = errors.New("whiteboard: no generation API key configured, add one in settings first")
	ErrNoHosting          = errors.New("whiteboard: local images need an image hosting credential (R2) before they can be used as inputs")
)

// Setting keys understood by the collaborators.
const (
	SettingKieAPIKey     = "kie_api_key"
	SettingR2AccountID   = "r2_account_id"
	SettingR2AccessKeyID = "r2_access_key_id"
	SettingR2SecretKey   = "r2_secret_access_key"
	SettingR2Bucket      = "r2_bucket"
	SettingTheme         = "theme"
	ThemeLight           = "light"
	ThemeDark            = "dark"
)

// Settings defines the contract for the persisted credential/settings store.
// Values are read at call time and never cached by the board.
type Settings interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Values
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}

// GenerateRequest is one user-triggered generation, possibly batched.
type GenerateRequest struct {
	Prompt      string
	Model       string
	AspectRatio AspectRatio
	Resolution  Resolution
	InputImages []string
	BatchSize   int
}

// Generator runs generation jobs against the remote image API. It returns
// one URL per batch unit or a human-readable error.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]string, error)
}

// Uploader turns a local image payload (data URI) into a fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, dataURI string) (string, error)
}

// UploaderSource selects the hosting adapter at call time from whichever
// credential is configured. It returns ErrNoHosting when none is.
type UploaderSource func(ctx context.Context) (Uploader, error)

// SettingOrEmpty reads key and maps ErrSettingNotFound to "".
func SettingOrEmpty(ctx context.Context, s Settings, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	return v, err
}
