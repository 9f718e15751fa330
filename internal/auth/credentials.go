package auth

import (
	"fmt"
	"strings"
)

// credential is one parsed "principal:secret[:role]" entry.
type credential struct {
	principal string
	secret    string
	role      Role
}

// parseCredentials parses a comma separated list of
// "principal:secret[:role]" entries. kind prefixes error messages and
// first/second name the two mandatory parts for them.
func parseCredentials(kind, first, second, config string) ([]credential, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s: %s config must not be empty", kind, first)
	}

	var creds []credential
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf(
				"%s: invalid entry format, expected %s:%s[:role]", kind, first, second,
			)
		}

		principal := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		if principal == "" || secret == "" {
			return nil, fmt.Errorf("%s: %s and %s must not be empty", kind, first, second)
		}

		var roleName string
		if len(parts) == 3 {
			roleName = strings.TrimSpace(parts[2])
		}
		role, err := ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		creds = append(creds, credential{principal: principal, secret: secret, role: role})
	}

	if len(creds) == 0 {
		return nil, fmt.Errorf("%s: no valid entries found", kind)
	}

	return creds, nil
}
