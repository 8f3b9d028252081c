package views

import (
	"net/http"

	"github.com/a-h/templ"
)

// Error renders the error page.
func (v *Views) Error(data ErrorData) templ.Component {
	data.Title = "Error"
	if data.Status != 0 {
		data.Title = http.StatusText(data.Status)
	}
	if data.Message == "" {
		data.Message = "Something went wrong while talking to the storage service."
	}
	return v.page(pageError, data)
}

// HandlerError writes the error page with status.
func (v *Views) HandlerError(w http.ResponseWriter, r *http.Request, status int, data ErrorData) {
	data.Status = status
	templ.Handler(v.Error(data), templ.WithStatus(status)).ServeHTTP(w, r)
}
