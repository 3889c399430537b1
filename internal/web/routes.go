package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-gate/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	timeout := chiMiddleware.Timeout(requestTimeout)

	s.router.With(timeout).Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})
	s.router.With(timeout).Get("/admin", s.admin.Overview)

	s.router.Route("/api/v1", func(r chi.Router) {
		// The event stream is long-lived and must not be cut by the timeout.
		r.Get("/events", s.events.Stream)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/health", handlers.HealthCheck)

			r.Get("/faces", s.admin.List)
			r.Get("/faces/arm", s.admin.ArmStatus)
			r.Post("/faces/arm", s.admin.Arm)
			r.Delete("/faces/arm", s.admin.Disarm)
			r.Put("/faces/{name}", s.admin.Rename)
			r.Delete("/faces/{name}", s.admin.Delete)

			r.Post("/sensor/enroll", s.sensor.Enroll)
			r.Post("/sensor/recognize", s.sensor.Recognize)
		})
	})

	// Routes used by deployed camera firmware and the old admin page.
	s.router.Group(func(r chi.Router) {
		r.Use(timeout)

		r.Post("/iniciar_registo", s.admin.Arm)
		r.Post("/registar_rosto", s.firmwareSensor.Enroll)
		r.Post("/reconhecer_rosto", s.firmwareSensor.Recognize)
		r.Post("/apagar_rosto/{name}", s.admin.Delete)
		r.Post("/renomear_rosto/{name}", s.admin.Rename)
	})
}
