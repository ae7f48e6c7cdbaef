package patcher

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	jobs    *Jobs
	handler *Handler
}

// NewFeature creates the patch feature.
func NewFeature(d Deps) *Feature {
	svc := NewService(d)
	jobs := NewJobs(svc, svc.logger)
	return &Feature{service: svc, jobs: jobs, handler: NewHandler(svc, jobs)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "patcher"
}

// IsEnabled reports whether the installation is configured.
func (f *Feature) IsEnabled() bool {
	return f.service.fs != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Shutdown cancels running jobs.
func (f *Feature) Shutdown() {
	f.jobs.Shutdown()
}
