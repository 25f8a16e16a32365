// conf/validate.go validation of loaded settings
package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks the loaded settings for values that would leave the
// consensus engine inoperable or unsafe.
func ValidateSettings(settings *Settings) error {
	var validationErrors []string

	c := &settings.Consensus
	if c.AutoConfirmThreshold <= 0 || c.AutoConfirmThreshold > 1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.autoconfirmthreshold must be in (0,1], got %g", c.AutoConfirmThreshold))
	}
	if c.CorroborationQuorum < 1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.corroborationquorum must be at least 1, got %d", c.CorroborationQuorum))
	}
	if c.LengthSlack < 0 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.lengthslack must not be negative, got %d", c.LengthSlack))
	}
	if c.ContextSimilarity < 0 || c.ContextSimilarity > 1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.contextsimilarity must be in [0,1], got %g", c.ContextSimilarity))
	}
	if c.CascadeMaxDepth < 1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.cascademaxdepth must be at least 1, got %d", c.CascadeMaxDepth))
	}
	if c.CascadeScanLimit < 1 {
		validationErrors = append(validationErrors,
			fmt.Sprintf("consensus.cascadescanlimit must be at least 1, got %d", c.CascadeScanLimit))
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		validationErrors = append(validationErrors, "at least one database output must be enabled")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		validationErrors = append(validationErrors, "output.sqlite.path must not be empty")
	}

	if len(validationErrors) > 0 {
		msg := "settings validation failed:"
		for _, e := range validationErrors {
			msg += "\n- " + e
		}
		return errors.New(msg)
	}

	return nil
}
