package relations

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the relation API to the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/relationships", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})

	r.Route("/relations/{id}", func(r chi.Router) {
		r.Route("/contact-persons", func(r chi.Router) {
			r.Get("/", h.ListContactPersons)
			r.Post("/", h.CreateContactPerson)
			r.Get("/main", h.ShowMainContact)
			r.Put("/{contactID}", h.UpdateContactPerson)
			r.Delete("/{contactID}", h.DeleteContactPerson)
			r.Put("/{contactID}/main", h.SetMainContact)
		})
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.UploadDocument)
			r.Put("/{documentID}", h.UpdateDocument)
			r.Get("/{documentID}/url", h.ShowDocumentURL)
			r.Delete("/{documentID}", h.DeleteDocument)
		})
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", h.ListNotes)
			r.Post("/", h.CreateNote)
			r.Put("/{noteID}", h.UpdateNote)
			r.Delete("/{noteID}", h.DeleteNote)
		})
	})

	r.Get("/files/*", h.DownloadFile)
}
