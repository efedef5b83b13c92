package handler

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homecare-dashboard/internal/config"
	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/report"
	"homecare-dashboard/internal/session"
	"homecare-dashboard/internal/store"
	"homecare-dashboard/internal/vitals"
)

const apiPrefix = "/api/v1"

//go:embed templates/*.html
var templateFS embed.FS

// Store is everything the pages and the API read or write.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error

	SeedVitals(ctx context.Context, userID string, rows []model.VitalResult) (int, error)
	LatestVital(ctx context.Context, userID string) (*model.VitalResult, error)
	SaveVital(ctx context.Context, v *model.VitalResult) (*model.VitalResult, error)
	VitalByDate(ctx context.Context, userID string, day time.Time) (*model.VitalResult, error)
	VitalByID(ctx context.Context, userID, id string) (*model.VitalResult, error)
	UpdateVital(ctx context.Context, v *model.VitalResult) error
	DeleteVital(ctx context.Context, userID, id string) error
	ListVitals(ctx context.Context, userID string, from, to time.Time, ascending bool) ([]model.VitalResult, error)
	ImportVitals(ctx context.Context, userID string, rows []model.VitalResult) error

	CreateMedication(ctx context.Context, m *model.Medication) error
	ListMedications(ctx context.Context, userID string) ([]model.Medication, error)
	DeleteMedication(ctx context.Context, userID, id string) error

	ListReports(ctx context.Context, userID string, limit int) ([]model.Report, error)
	ReportCounts(ctx context.Context, userID string) (map[string]int, error)

	SaveDeviceToken(ctx context.Context, d *model.DeviceToken) error
	DeleteDeviceToken(ctx context.Context, userID, token string) error
}

type Deps struct {
	Store    Store
	Sessions session.Store
	Reports  *report.Generator
	Limiter  *middleware.RateLimiter
	Config   *config.Config
	Log      *logrus.Logger
}

type Handler struct {
	store    Store
	sessions session.Store
	reports  *report.Generator
	limiter  *middleware.RateLimiter
	cfg      *config.Config
	log      *logrus.Logger
	now      func() time.Time
	seed     func() *rand.Rand
}

func New(d Deps) *Handler {
	return &Handler{
		store:    d.Store,
		sessions: d.Sessions,
		reports:  d.Reports,
		limiter:  d.Limiter,
		cfg:      d.Config,
		log:      d.Log,
		now:      time.Now,
		seed:     func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
}

var funcs = template.FuncMap{
	"icon":   medication.Icon,
	"hour":   medication.FormatHour,
	"active": medication.Active,
	"day": func(t time.Time) string {
		return t.Format(vitals.DateLayout)
	},
	"optday": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(vitals.DateLayout)
	},
	"category": func(v *model.VitalResult) string {
		return string(vitals.Classify(v.Systolic, v.Diastolic))
	},
	"kindTitle": func(id string) string {
		t, _ := report.KindTitle(id)
		return t
	},
}

func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Router wires every page and API route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(h.cfg.TrustedProxies); err != nil {
		h.log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), middleware.AccessLog(h.log), gzip.Gzip(gzip.DefaultCompression))
	// preflights never match a route, so CORS runs on the engine for the
	// API prefix only
	apiCORS := cors.New(cors.Config{
		AllowOrigins:     h.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, apiPrefix+"/") {
			apiCORS(c)
		}
	})
	r.SetHTMLTemplate(Templates())

	r.GET("/healthz", h.Health)
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.limiter.Gin(), h.Login)
	r.GET("/signup", h.SignupPage)
	r.POST("/signup", h.limiter.Gin(), h.Signup)
	r.POST("/logout", h.Logout)

	pages := r.Group("/", middleware.Session(h.sessions, h.log))
	pages.GET("/dashboard", h.Dashboard)
	pages.GET("/profile/edit", h.EditProfilePage)
	pages.POST("/profile/edit", h.EditProfile)
	pages.GET("/profile/delete", h.DeleteProfilePage)
	pages.POST("/profile/delete", h.DeleteProfile)

	pages.GET("/heart", h.Heart)
	pages.POST("/heart/diagnosis", h.Diagnose)
	pages.GET("/heart/records/:id/edit", h.EditRecordPage)
	pages.POST("/heart/records/:id/edit", h.EditRecord)
	pages.GET("/heart/records/:id/delete", h.DeleteRecordPage)
	pages.POST("/heart/records/:id/delete", h.DeleteRecord)

	pages.GET("/medications", h.Medications)
	pages.POST("/medications", h.AddMedication)
	pages.POST("/medications/:id/delete", h.DeleteMedication)

	pages.GET("/reports", h.Reports)
	pages.POST("/reports", h.GenerateReport)
	pages.GET("/reports/:id/download", h.DownloadReport)

	api := r.Group(apiPrefix)
	api.POST("/token", h.limiter.Gin(), h.Token)

	authed := api.Group("/", middleware.Bearer(h.cfg.JWTSecret))
	authed.GET("/vitals", h.APIVitals)
	authed.GET("/vitals/export", h.ExportVitals)
	authed.POST("/vitals/import", h.ImportVitals)
	authed.GET("/medications", h.APIMedications)
	authed.POST("/devices", h.RegisterDevice)
	authed.DELETE("/devices/:token", h.UnregisterDevice)

	return r
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// render adds the signed-in user and any pending flash message to data.
func (h *Handler) render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if id, sess, ok := middleware.CurrentSession(c); ok {
		data["UserName"] = sess.Name
		if sess.Flash != "" {
			data["Flash"] = sess.Flash
			sess.Flash = ""
			if err := h.sessions.Save(c.Request.Context(), id, *sess); err != nil {
				h.log.WithError(err).Warn("clear flash")
			}
		}
	}
	c.HTML(code, name, data)
}

// redirect stores msg as a flash for the next page and sends the browser on.
func (h *Handler) redirect(c *gin.Context, to, msg string) {
	if id, sess, ok := middleware.CurrentSession(c); ok && msg != "" {
		sess.Flash = msg
		if err := h.sessions.Save(c.Request.Context(), id, *sess); err != nil {
			h.log.WithError(err).Warn("save flash")
		}
	}
	c.Redirect(http.StatusSeeOther, to)
}

// fail logs err and shows the generic error page.
func (h *Handler) fail(c *gin.Context, err error, what string) {
	_ = c.Error(err)
	code := http.StatusInternalServerError
	msg := "Something went wrong while " + what + ". Please try again."
	if errors.Is(err, store.ErrNotFound) {
		code, msg = http.StatusNotFound, "Not found."
	}
	h.render(c, code, "error.html", gin.H{"Title": "Error", "Message": msg})
}

func (h *Handler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, id, int(h.cfg.SessionTTL.Seconds()), "/", "", h.cfg.SecureCookies, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cfg.SecureCookies, true)
}

// seedDemo fills an empty history with generated readings when demo seeding
// is on. Errors are logged; the page still renders with fallback values.
func (h *Handler) seedDemo(c *gin.Context, p vitals.Profile) {
	if !h.cfg.DemoSeed {
		return
	}
	uid := middleware.UserID(c)
	rows := vitals.Generate(p, uid, h.now(), h.seed())
	n, err := h.store.SeedVitals(c.Request.Context(), uid, rows)
	if err != nil {
		h.log.WithError(err).WithField("user_id", uid).Warn("demo seeding failed")
		return
	}
	if n > 0 {
		h.log.WithFields(logrus.Fields{"user_id": uid, "profile": p.Name, "rows": n}).Info("seeded demo vitals")
	}
}
