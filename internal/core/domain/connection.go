package domain

import "time"

// ConnectionStatus is the observable state of a user's link to a service.
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionExpired      ConnectionStatus = "expired"
	ConnectionError        ConnectionStatus = "error"
)

// ServiceConnectionInfo is the status report for one service.
type ServiceConnectionInfo struct {
	ServiceID   string           `json:"service_id"`
	Name        string           `json:"name"`
	Status      ConnectionStatus `json:"status"`
	ConnectedAt *time.Time       `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	// ExpiresInMinutes is negative once expired and nil when unknown.
	ExpiresInMinutes *int     `json:"expires_in_minutes,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
	CanRefresh       bool     `json:"can_refresh"`
	LastError        string   `json:"last_error,omitempty"`
}

// DescribeConnection derives the connection report for a service.
// cred may be nil when the user never connected the service.
func DescribeConnection(serviceID, name string, cred *ServiceCredential, lastErr error, now time.Time) ServiceConnectionInfo {
	info := ServiceConnectionInfo{
		ServiceID: serviceID,
		Name:      name,
		Status:    ConnectionDisconnected,
	}
	if cred == nil {
		return info
	}

	connectedAt := cred.ConnectedAt
	info.ConnectedAt = &connectedAt
	info.Scopes = cred.Scopes
	info.CanRefresh = cred.HasRefreshToken()
	if cred.ExpiresAt != nil {
		expiresAt := *cred.ExpiresAt
		info.ExpiresAt = &expiresAt
	}
	if d, ok := cred.ExpiresIn(now); ok {
		minutes := int(d / time.Minute)
		info.ExpiresInMinutes = &minutes
	}

	switch {
	case lastErr != nil:
		info.Status = ConnectionError
		info.LastError = lastErr.Error()
	case cred.IsExpired(now):
		info.Status = ConnectionExpired
	default:
		info.Status = ConnectionConnected
	}
	return info
}
