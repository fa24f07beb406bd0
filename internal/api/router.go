package api

import (
	"net/http"

	"github.com/theLastOfCats/manhwa-go-server/internal/catalog"
	"github.com/theLastOfCats/manhwa-go-server/internal/category"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/leveling"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"github.com/theLastOfCats/manhwa-go-server/internal/progress"
	"go.uber.org/zap"
)

type Deps struct {
	DB              *db.DB
	Catalog         catalog.Client
	ConflictRetries int
	Log             *zap.Logger
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Alive"))
}

// NewRouter wires every route behind request logging and panic recovery.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	mw := &Middleware{DB: d.DB, Log: log}
	authHandler := &AuthHandler{DB: d.DB, Log: log}
	userHandler := &UserHandler{DB: d.DB, Tracker: &leveling.Tracker{DB: d.DB}, Log: log}
	manhwaHandler := &ManhwaHandler{
		DB:         d.DB,
		Catalog:    d.Catalog,
		Reconciler: progress.NewReconciler(d.DB, d.Catalog, d.ConflictRetries, log),
		Log:        log,
	}
	categoryHandler := &CategoryHandler{Service: category.NewService(d.DB, d.Catalog, d.ConflictRetries, log), Log: log}
	adminHandler := &AdminHandler{DB: d.DB, Accounts: leveling.NewAccounts(d.DB, d.ConflictRetries, log), Log: log}

	private := func(h http.HandlerFunc) http.Handler { return mw.AuthMiddleware(h) }
	admin := func(h http.HandlerFunc) http.Handler {
		return mw.AuthMiddleware(RequireRole(model.RoleAdmin)(h))
	}

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /{$}", Health)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/manhwa/search", manhwaHandler.Search)
	mux.HandleFunc("GET /api/manhwa/popular", manhwaHandler.Popular)
	mux.Handle("GET /api/manhwa/{manhwaId}", mw.OptionalAuthMiddleware(http.HandlerFunc(manhwaHandler.GetDetails)))
	mux.HandleFunc("GET /api/manhwa/{manhwaId}/chapters", manhwaHandler.GetChapters)
	mux.HandleFunc("GET /api/chapters/{chapterId}/pages", manhwaHandler.GetChapterPages)

	// Protected Routes
	mux.Handle("GET /api/auth/me", private(authHandler.Me))
	mux.Handle("PUT /api/auth/preferences", private(authHandler.UpdatePreferences))
	mux.Handle("GET /api/users/profile", private(userHandler.GetProfile))
	mux.Handle("GET /api/users/profile/{userId}", private(userHandler.GetProfile))
	mux.Handle("GET /api/users/reading-history", private(userHandler.GetReadingHistory))
	mux.Handle("POST /api/manhwa/{manhwaId}/progress", private(manhwaHandler.UpdateProgress))

	mux.Handle("GET /api/categories", private(categoryHandler.List))
	mux.Handle("POST /api/categories", private(categoryHandler.Create))
	mux.Handle("PUT /api/categories/{categoryId}", private(categoryHandler.Update))
	mux.Handle("DELETE /api/categories/{categoryId}", private(categoryHandler.Delete))
	mux.Handle("POST /api/categories/{categoryId}/manhwa", private(categoryHandler.AddManhwa))
	mux.Handle("DELETE /api/categories/{categoryId}/manhwa/{manhwaId}", private(categoryHandler.RemoveManhwa))

	// Admin Routes
	mux.Handle("PUT /api/users/role", admin(userHandler.UpdateRole))
	mux.Handle("GET /api/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("POST /api/admin/users/{userId}/experience", admin(adminHandler.GrantExperience))
	mux.Handle("GET /api/admin/level-tasks", admin(adminHandler.ListLevelTasks))
	mux.Handle("POST /api/admin/level-tasks/{level}", admin(adminHandler.SaveLevelTask))
	mux.Handle("DELETE /api/admin/level-tasks/{level}", admin(adminHandler.DeleteLevelTask))

	return LoggingMiddleware(log)(RecoverMiddleware(log)(mux))
}
