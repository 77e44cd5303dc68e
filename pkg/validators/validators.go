package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"Airlock/pkg/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	// IFNAMSIZ is 16 including the terminator.
	ifaceName = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,15}$`)
)

// ValidateConfig checks the struct tags on a loaded config.
func ValidateConfig(cfg *models.Config) error {
	return explain("config", validate.Struct(cfg))
}

// ValidateAccessPoint checks a scanned or persisted access point.
func ValidateAccessPoint(ap *models.AccessPoint) error {
	if err := explain("access point", validate.Struct(ap)); err != nil {
		return err
	}
	switch ap.Encryption {
	case models.Open, models.WEP, models.WPA, models.WPA2:
		return nil
	}
	return fmt.Errorf("access point %s: unknown encryption %q", ap.BSSID, ap.Encryption)
}

// ValidateMAC accepts colon separated hardware addresses.
func ValidateMAC(mac string) error {
	return explain("mac "+mac, validate.Var(mac, "required,mac"))
}

// ValidateInterfaceName rejects names the kernel would never accept.
func ValidateInterfaceName(name string) error {
	if !ifaceName.MatchString(name) {
		return fmt.Errorf("not a valid interface name: %q", name)
	}
	return nil
}

func explain(what string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", what, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid %s: %s", what, strings.Join(msgs, "; "))
}
