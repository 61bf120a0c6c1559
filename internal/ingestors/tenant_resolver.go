package ingestors

import (
	"strings"

	"github.com/google/uuid"
)

// HeaderTenantID is the transport header naming the owning tenant.
const HeaderTenantID = "tenant-id"

// TenantResolver derives the owning tenant for a message from its transport
// headers, falling back to a configured default tenant.
//
// This is a trust boundary: the claimed tenant is not checked against the
// device registry here. Authorization of the claim is the registry
// collaborator's concern, a known gap reproduced as observed.
type TenantResolver struct {
	defaultTenant uuid.UUID
}

func NewTenantResolver(defaultTenant uuid.UUID) *TenantResolver {
	return &TenantResolver{defaultTenant: defaultTenant}
}

// Resolve returns the tenant claimed by the tenant-id header when it is
// present, non-empty and parses as a UUID, otherwise the default tenant.
func (r *TenantResolver) Resolve(headers map[string]string) uuid.UUID {
	raw := headers[HeaderTenantID]
	if raw == "" {
		for name, value := range headers {
			if strings.EqualFold(name, HeaderTenantID) {
				raw = value
				break
			}
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.defaultTenant
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return r.defaultTenant
	}
	return tenantID
}
