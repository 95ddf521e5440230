package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/orgcache/internal/handlers"
)

func registerOrganizationRoutes(router gin.IRouter, resolver handlers.OrganizationResolver, validateIDs bool) error {
	handler, err := handlers.NewOrganizationHandler(resolver, validateIDs)
	if err != nil {
		return err
	}

	router.GET("/org/:orgId", handler.Get)
	return nil
}
