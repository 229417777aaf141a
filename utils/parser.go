package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/payrails/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ParseConfiguration decodes the base64 configuration blob handed over by the
// host app and validates it.
func ParseConfiguration(raw string) (*types.Configuration, error) {
	data, err := DecodeBase64(raw)
	if err != nil {
		return nil, types.NewInvalidDataFormat("configuration is not valid base64", err)
	}
	return ParseConfigurationJSON(data)
}

// ParseConfigurationJSON parses and validates an already decoded configuration.
func ParseConfigurationJSON(data []byte) (*types.Configuration, error) {
	var config types.Configuration

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, types.NewInvalidDataFormat("failed to decode configuration", err)
	}

	if err := validate.Struct(&config); err != nil {
		return nil, types.NewInvalidDataFormat("configuration validation failed", err)
	}

	if _, err := ValidateAmount(config.Amount); err != nil {
		return nil, types.NewInvalidDataFormat("configuration amount is invalid", err)
	}

	return &config, nil
}

// DecodeBase64 accepts padded and unpadded standard base64, the two forms
// merchant backends emit.
func DecodeBase64(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if data, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(raw)
}

// DecodeApplePayConfig decodes and validates the provider config of an
// Apple Pay option.
func DecodeApplePayConfig(option *types.PaymentOption) (*types.ApplePayConfig, error) {
	var config types.ApplePayConfig
	if err := decodeOptionConfig(option, &config); err != nil {
		return nil, types.NewIncorrectPaymentSetup(types.PaymentTypeApplePay, err)
	}
	return &config, nil
}

// DecodePayPalConfig decodes and validates the provider config of a PayPal option.
func DecodePayPalConfig(option *types.PaymentOption) (*types.PayPalConfig, error) {
	var config types.PayPalConfig
	if err := decodeOptionConfig(option, &config); err != nil {
		return nil, types.NewIncorrectPaymentSetup(types.PaymentTypePayPal, err)
	}
	return &config, nil
}

func decodeOptionConfig(option *types.PaymentOption, out any) error {
	if option == nil || len(option.Config) == 0 {
		return fmt.Errorf("payment option has no config")
	}
	if err := json.Unmarshal(option.Config, out); err != nil {
		return fmt.Errorf("failed to decode option config: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateStruct runs struct tag validation on v.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// CompactJSON marshals v without indentation. Used for query parameters.
func CompactJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
