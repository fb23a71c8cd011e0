// Package gcp holds what the Pub/Sub and BigQuery clients share: credential
// options and resource naming.
package gcp

import (
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
)

// ClientOptions prefers inline JSON credentials over a credentials file.
// With neither set the client libraries use application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ResourceName expands a short id into projects/<project>/<collection>/<id>.
// Fully qualified names pass through and a blank id yields "".
func ResourceName(project, collection, id string) string {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return ""
	case strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+collection+"/"):
		return id
	}
	return fmt.Sprintf("projects/%s/%s/%s", strings.TrimSpace(project), collection, id)
}
