package httpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"dishmap/internal/app"
	"dishmap/internal/domain"
)

// maxFieldBytes caps the text fields of the upload form.
const maxFieldBytes = 64 << 10

type Handlers struct {
	Search  *app.SearchService
	Detail  *app.DetailService
	Ingest  *app.IngestionService
	Photos  *app.PhotoService
	Records *app.RecordService
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type uploadResponse struct {
	Message string              `json:"message"`
	Record  domain.UploadRecord `json:"record"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.upload)
		r.Get("/search", h.search)
		r.Get("/place", h.place)
		r.Get("/photo", h.photo)
		r.Get("/records", h.records)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// statusFor maps domain errors to a status and a machine-readable body.
func statusFor(err error) (int, errorBody) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorBody{Error: ve.Message, Code: ve.Code}
	}
	switch {
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, errorBody{Error: "places provider request failed", Code: "upstream_error", Details: err.Error()}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusInternalServerError, errorBody{Error: "record store unavailable", Code: "store_unavailable", Details: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal_error", Details: err.Error()}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

// termsParam accepts comma-separated and repeated terms parameters.
func termsParam(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["terms"] {
		out = append(out, app.ParseTerms(v)...)
	}
	return out
}

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request) {
	// headroom over the file limit for the other form fields and multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxUploadBytes+1<<20)
	in, err := readUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.Ingest.Ingest(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Message: "Upload successful", Record: rec})
}

// readUpload streams the form. The photo's type is decided from its part
// header before any of its content is buffered, so a non-image is rejected
// as such whatever its size.
func readUpload(r *http.Request) (app.UploadInput, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return app.UploadInput{}, domain.ErrMissingFile
	}

	var in app.UploadInput
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return app.UploadInput{}, bodyError(err)
		}

		switch part.FormName() {
		case "photo":
			if in.File != nil {
				continue
			}
			mimeType, body := partContentType(part)
			if !strings.HasPrefix(mimeType, "image/") {
				return app.UploadInput{}, domain.ErrInvalidFileType
			}
			data, err := io.ReadAll(io.LimitReader(body, domain.MaxUploadBytes+1))
			if err != nil {
				return app.UploadInput{}, bodyError(err)
			}
			if int64(len(data)) > domain.MaxUploadBytes {
				return app.UploadInput{}, domain.ErrFileTooLarge
			}
			in.File, in.Filename, in.MimeType = bytes.NewReader(data), part.FileName(), mimeType
		case "place_id", "dish", "uploader_name":
			v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return app.UploadInput{}, bodyError(err)
			}
			switch part.FormName() {
			case "place_id":
				in.PlaceID = string(v)
			case "dish":
				in.Dish = string(v)
			default:
				in.UploaderName = string(v)
			}
		}
	}
	if in.File == nil {
		return app.UploadInput{}, domain.ErrMissingFile
	}
	return in, nil
}

// bodyError classifies a failed read of the request body.
func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return domain.ErrFileTooLarge
	}
	return domain.ErrMissingFile
}

// partContentType trusts the part header and sniffs the content only when it
// is absent. The returned reader still yields the whole part.
func partContentType(p *multipart.Part) (string, io.Reader) {
	if ct := p.Header.Get("Content-Type"); ct != "" {
		return ct, p
	}
	br := bufio.NewReaderSize(p, 512)
	head, _ := br.Peek(512)
	return http.DetectContentType(head), br
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	res, err := h.Search.Search(r.Context(), termsParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) place(w http.ResponseWriter, r *http.Request) {
	d, err := h.Detail.GetDetail(r.Context(), r.URL.Query().Get("place_id"), termsParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) photo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := app.DefaultPhotoWidth
	if s := q.Get("maxwidth"); s != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			width = n
		}
	}
	u, err := h.Photos.RedirectURL(r.Context(), q.Get("photoreference"), width)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *Handlers) records(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Records.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("place_id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
