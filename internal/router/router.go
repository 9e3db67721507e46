package router

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/handler"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/policy"
)

// Deps holds the handlers mounted under the API prefix.
type Deps struct {
	Auth          middleware.Authenticator
	AuthHandler   *handler.AuthHandler
	Denuncias     *handler.DenunciaHandler
	Archivos      *handler.ArchivoHandler
	Catalogo      *handler.CatalogoHandler
	Usuarios      *handler.UsuarioHandler
	Observability *handler.MetricsHandler
}

// Register mounts operational endpoints at the root and the API under prefix.
func Register(r *gin.Engine, prefix string, deps Deps) {
	if deps.Observability != nil {
		r.GET("/health", deps.Observability.Health)
		r.GET("/ready", deps.Observability.Ready)
		r.GET("/metrics", deps.Observability.Prometheus)
	}

	api := r.Group(prefix)
	requireAuth := middleware.RequireAuth(deps.Auth)

	auth := api.Group("/auth")
	auth.POST("/registro", deps.AuthHandler.Register)
	auth.POST("/login", deps.AuthHandler.Login)
	auth.POST("/admin/login", deps.AuthHandler.LoginAdmin)
	auth.GET("/me", requireAuth, deps.AuthHandler.Me)
	auth.PUT("/cambiar-password", requireAuth, deps.AuthHandler.ChangePassword)

	denuncias := api.Group("/denuncias")
	denuncias.POST("", middleware.OptionalAuth(deps.Auth), deps.Denuncias.Create)
	denuncias.GET("/consultar/:codigo", deps.Denuncias.GetByCode)

	reviewer := denuncias.Group("", requireAuth, middleware.RequireCapability(policy.ReviewReports))
	reviewer.GET("", deps.Denuncias.List)
	reviewer.PUT("/:id/estado", deps.Denuncias.UpdateStatus)

	admin := denuncias.Group("", requireAuth, middleware.IsAdmin())
	admin.GET("/estadisticas/general", deps.Denuncias.Statistics)
	admin.GET("/exportar", deps.Denuncias.Export)
	admin.DELETE("/:id", deps.Denuncias.Delete)
	admin.POST("/:id/recursos", deps.Denuncias.AssignResources)
	admin.POST("/:id/atencion", deps.Denuncias.RecordAttention)

	owner := denuncias.Group("", requireAuth)
	owner.GET("/mis-denuncias", deps.Denuncias.ListMine)
	owner.GET("/:id", deps.Denuncias.Get)
	owner.PUT("/:id", deps.Denuncias.Update)
	owner.POST("/:id/archivos", deps.Archivos.Upload)

	api.GET("/archivos/descargar/:token", deps.Archivos.Download)

	catalogo := api.Group("/catalogo")
	catalogAdmin := catalogo.Group("", requireAuth, middleware.RequireCapability(policy.ManageCatalog))
	catalogo.GET("/instituciones", deps.Catalogo.ListInstituciones)
	catalogo.GET("/instituciones/:id", deps.Catalogo.GetInstitucion)
	catalogo.GET("/instituciones/:id/facultades", deps.Catalogo.ListFacultadesByInstitucion)
	catalogAdmin.POST("/instituciones", deps.Catalogo.CreateInstitucion)
	catalogAdmin.PUT("/instituciones/:id", deps.Catalogo.UpdateInstitucion)
	catalogo.GET("/facultades", deps.Catalogo.ListFacultades)
	catalogo.GET("/facultades/:id", deps.Catalogo.GetFacultad)
	catalogo.GET("/facultades/:id/estadisticas", requireAuth, middleware.IsAdmin(), deps.Catalogo.FacultadStatistics)
	catalogAdmin.POST("/facultades", deps.Catalogo.CreateFacultad)
	catalogAdmin.PUT("/facultades/:id", deps.Catalogo.UpdateFacultad)
	catalogo.GET("/recursos", deps.Catalogo.ListRecursos)
	catalogo.GET("/recursos/:id", deps.Catalogo.GetRecurso)
	catalogAdmin.POST("/recursos", deps.Catalogo.CreateRecurso)
	catalogAdmin.PUT("/recursos/:id", deps.Catalogo.UpdateRecurso)

	usuarios := api.Group("/usuarios", requireAuth, middleware.RequireCapability(policy.ManageUsers))
	usuarios.GET("", deps.Usuarios.List)
	usuarios.GET("/:id", deps.Usuarios.Get)
	usuarios.PATCH("/:id", deps.Usuarios.Update)
}
