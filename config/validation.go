package config

import (
	"path/filepath"
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/go-playground/validator/v10"
)

const (
	errMsgNilConfig      = "Config is nil."
	errMsgConfigInvalid  = "Configuration is invalid."
	errMsgReadFailed     = "Failed to read config file."
	errMsgDecodeFailed   = "Failed to decode config file."
	errMsgTemplateExists = "Config file already exists."
	errMsgTemplateWrite  = "Failed to write config template."
)

var validate *validator.Validate
var once sync.Once

func validatorInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
			_, err := ParseSize(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
			_, err := ParseInterval(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
			return !filepath.IsAbs(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the whole config tree.
func Validate(cfg *Config) error {
	const op errors.Op = "config.Validate"
	if cfg == nil {
		return errors.New(op).Msg(errMsgNilConfig)
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}
	return nil
}

// ValidateLogging checks only the logging section.
func ValidateLogging(cfg *Logging) error {
	const op errors.Op = "config.ValidateLogging"
	if cfg == nil {
		return errors.New(op).Msg(errMsgNilConfig)
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}
	return nil
}
