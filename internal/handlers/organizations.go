package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/orgcache/internal/services"
	appErrors "github.com/charlesng35/orgcache/pkg/errors"
	"github.com/charlesng35/orgcache/pkg/logger"
	"github.com/charlesng35/orgcache/pkg/response"
)

// OrganizationResolver returns the JSON document stored for an organization id.
type OrganizationResolver interface {
	Resolve(ctx context.Context, id string) (json.RawMessage, error)
}

// OrganizationHandler serves cached organization documents.
type OrganizationHandler struct {
	resolver    OrganizationResolver
	validateIDs bool
}

// NewOrganizationHandler constructs the handler. When validateIDs is set, ids that are
// not nine digits are rejected before reaching the resolver.
func NewOrganizationHandler(resolver OrganizationResolver, validateIDs bool) (*OrganizationHandler, error) {
	if resolver == nil {
		return nil, errors.New("organization handler: resolver is required")
	}
	return &OrganizationHandler{resolver: resolver, validateIDs: validateIDs}, nil
}

// Get handles GET /org/:orgId and writes the stored document verbatim.
func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID := strings.TrimSpace(c.Param("orgId"))
	if orgID == "" {
		response.Error(c, appErrors.NewBadRequest("organization id is required"))
		return
	}
	if h.validateIDs {
		if err := validateOrgID(orgID); err != nil {
			response.Error(c, err)
			return
		}
	}

	ctx := requestContext(c)
	doc, err := h.resolver.Resolve(ctx, orgID)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; nobody is left to read a response.
			c.Abort()
			return
		}
		_ = c.Error(err)
		response.Error(c, mapResolveError(orgID, err))
		return
	}

	response.Document(c, http.StatusOK, doc)
}

func mapResolveError(orgID string, err error) error {
	switch {
	case errors.Is(err, services.ErrOrganizationNotFound):
		return appErrors.ErrOrganizationNotFound.WithInternal(err)
	case errors.Is(err, services.ErrRegistryTimeout):
		return appErrors.ErrRegistryTimeout.WithInternal(err)
	case errors.Is(err, services.ErrRegistryUnavailable):
		return appErrors.ErrRegistryUnavailable.WithInternal(err)
	case errors.Is(err, services.ErrStore):
		logger.WithModule("http").Error("organization lookup failed", zap.String("org_id", orgID), zap.Error(err))
		return appErrors.ErrStorage.WithInternal(err)
	default:
		logger.WithModule("http").Error("organization lookup failed", zap.String("org_id", orgID), zap.Error(err))
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}
