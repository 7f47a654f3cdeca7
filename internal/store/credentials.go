package store

import (
	"context"
	"fmt"
	"strings"
)

// LoadCredentials reads username,password pairs. Later duplicates win.
func (s *Store) LoadCredentials(ctx context.Context) (map[string]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	name := s.files.CredentialsFile
	lines, err := s.readLines(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	creds := make(map[string]string, len(lines))
	for i, line := range lines {
		parts := strings.Split(line, ",")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			// the record itself is not logged: it carries a password
			s.skip(name, i+1, "<redacted>", fmt.Errorf("expected username,password"))
			continue
		}
		creds[parts[0]] = parts[1]
	}
	return creds, nil
}
