package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const serverIDFile = ".server_id"

// GetPersistentServerID identifies this instance for websocket fan-out. The override
// wins, then a previously saved id, then the hostname; otherwise a new id is generated
// and saved under storagePath.
func GetPersistentServerID(override, storagePath string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}

	idFile := filepath.Join(storagePath, serverIDFile)
	if data, err := os.ReadFile(idFile); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	if host := sanitizeHostname(); host != "" {
		return "azsocial-" + host
	}

	newID := "azsocial-" + uuid.NewString()[:8]
	if err := CreateFolder(storagePath); err == nil {
		if err := os.WriteFile(idFile, []byte(newID), 0644); err != nil {
			logrus.WithError(err).Warn("[APP] could not persist server id")
		}
	}
	return newID
}

func sanitizeHostname() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" || hostname == "localhost" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, hostname)
}
