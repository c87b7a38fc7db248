package smpp

import (
	"net"
	"strconv"
	"strings"

	"github.com/arloliu/go-smpp/pdu"
)

// Credentials identify the ESME to the SMSC.
//
// The bounded fields must fit their SMPP wire size including the NUL terminator:
// SystemID at most 15 octets, Password at most 8 and SystemType at most 12.
type Credentials struct {
	// Provider is a display name used in logs only.
	Provider string
	// Endpoint is the SMSC address in host:port form.
	Endpoint   string
	SystemID   string
	Password   string
	SystemType string
}

// NewCredentials builds and validates Credentials.
func NewCredentials(provider, endpoint, systemID, password, systemType string) (Credentials, error) {
	c := Credentials{
		Provider:   provider,
		Endpoint:   endpoint,
		SystemID:   systemID,
		Password:   password,
		SystemType: systemType,
	}

	return c, c.Validate()
}

// Validate checks the credentials without touching the network.
func (c Credentials) Validate() error {
	if err := validateEndpoint(c.Endpoint); err != nil {
		return err
	}
	if c.SystemID == "" {
		return &ConfigError{Field: "system_id", Reason: "must not be empty"}
	}
	if err := validateCString("system_id", c.SystemID, pdu.MaxSystemIDLen); err != nil {
		return err
	}
	if err := validateCString("password", c.Password, pdu.MaxPasswordLen); err != nil {
		return err
	}

	return validateCString("system_type", c.SystemType, pdu.MaxSystemTypeLen)
}

// String hides the password.
func (c Credentials) String() string {
	return c.Provider + "(" + c.SystemID + "@" + c.Endpoint + ")"
}

func validateEndpoint(endpoint string) error {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return &ConfigError{Field: "endpoint", Reason: err.Error()}
	}
	if host == "" {
		return &ConfigError{Field: "endpoint", Reason: "missing host"}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return &ConfigError{Field: "endpoint", Reason: "port is out of range [1, 65535]"}
	}

	return nil
}

// validateCString checks that v fits a C-octet string field of maxLen octets, NUL included.
func validateCString(field, v string, maxLen int) error {
	if strings.IndexByte(v, 0) >= 0 {
		return &ConfigError{Field: field, Reason: "contains NUL byte"}
	}
	if len(v)+1 > maxLen {
		return &ConfigError{Field: field, Reason: "longer than " + strconv.Itoa(maxLen-1) + " octets"}
	}

	return nil
}
