package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"deaddrop/internal/api"
	"deaddrop/internal/models"
)

// multipartFormSlack covers the non-file form fields and an optional
// carrier image on top of the payload size limit.
const multipartFormSlack = 64 << 20 // 64 MiB

func (s *Server) handleCreateDrop(w http.ResponseWriter, r *http.Request) {
	maxBody := s.maxUpload + multipartFormSlack
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(maxBody); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("invalid multipart form: %w", err), ErrCodeInvalidArgument))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	payload, filename, err := readFilePart(r, "file")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeMissingRequired))
		return
	}
	carrier, _, err := readOptionalFilePart(r, "carrier")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(err))
		return
	}

	params := CreateParams{
		Password:         r.FormValue("password"),
		PasswordHint:     strings.TrimSpace(r.FormValue("password_hint")),
		BurnAfterReading: r.FormValue("burn_after_reading") == "true",
		Filename:         filename,
		MimeType:         r.FormValue("mime_type"),
		Tags:             splitTags(r.FormValue("tags")),
		Payload:          payload,
		Carrier:          carrier,
	}

	if raw := r.FormValue("ttl_seconds"); raw != "" {
		ttl, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("invalid ttl_seconds %q", raw), ErrCodeInvalidTTL))
			return
		}
		params.TTLSeconds = ttl
	}
	if raw := r.FormValue("max_retrievals"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("invalid max_retrievals %q", raw), ErrCodeInvalidArgument))
			return
		}
		params.MaxRetrievals = max
	}
	if raw := r.FormValue("bits_per_channel"); raw != "" {
		bits, err := strconv.Atoi(raw)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("invalid bits_per_channel %q", raw), ErrCodeInvalidBitDepth))
			return
		}
		params.BitsPerChannel = bits
	}
	if params.MimeType == "" {
		params.MimeType = http.DetectContentType(payload)
	}

	drop, stats, err := s.service.Create(r.Context(), params, requestMeta(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := api.CreateDropResponse{
		DropID:           drop.ID,
		Codename:         drop.Codename,
		CreatedAt:        drop.CreatedAt,
		ExpiresAt:        drop.ExpiresAt,
		TTLSeconds:       drop.TTLSeconds,
		MaxRetrievals:    drop.MaxRetrievals,
		BurnAfterReading: drop.BurnAfterReading,
		Steganography:    stats,
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDrop(w http.ResponseWriter, r *http.Request) {
	drop, err := s.service.Metadata(r.Context(), r.PathValue("codename"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dropMetadata(drop, time.Now().UTC()))
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req api.RetrieveRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	codename := r.PathValue("codename")
	now := time.Now().UTC()
	limiterKey := attemptKey(codename, requestClientIP(r))
	if !s.attempts.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests,
			tooManyRequests(fmt.Errorf("too many failed attempts; retry later"), ErrCodeAttemptsThrottled))
		return
	}

	result, err := s.service.Retrieve(r.Context(), codename, req.Password, requestMeta(r))
	if err != nil {
		if httpStatusFromError(err) == http.StatusUnauthorized {
			s.attempts.RegisterFailure(limiterKey, now)
		}
		s.writeServiceError(w, r, err)
		return
	}
	s.attempts.Reset(limiterKey)

	drop := result.Drop
	mimeType := drop.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	filename := drop.OriginalFilename
	if filename == "" {
		filename = "payload.bin"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Payload)))
	w.Header().Set("X-Drop-Codename", drop.Codename)
	w.Header().Set("X-Drop-Burned", strconv.FormatBool(result.Burned))
	w.Header().Set("X-Drop-Retrieval-Count", strconv.Itoa(drop.RetrievalCount))
	w.Header().Set("X-Drop-Retrievals-Remaining", strconv.Itoa(drop.RemainingRetrievals()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Payload); err != nil {
		s.log().Error("write payload response", "drop_id", drop.ID, "error", err)
	}
}

func dropMetadata(drop *models.DeadDrop, now time.Time) api.DropMetadataResponse {
	resp := api.DropMetadataResponse{
		Codename:            drop.Codename,
		Status:              drop.Status,
		CreatedAt:           drop.CreatedAt,
		ExpiresAt:           drop.ExpiresAt,
		ExpiresIn:           humanize.Time(drop.ExpiresAt),
		TTLSeconds:          drop.TTLSeconds,
		MaxRetrievals:       drop.MaxRetrievals,
		RetrievalCount:      drop.RetrievalCount,
		RetrievalsRemaining: drop.RemainingRetrievals(),
		BurnAfterReading:    drop.BurnAfterReading,
		PasswordHint:        drop.PasswordHint,
		PayloadSize:         drop.PayloadSize,
		PayloadSizeHuman:    humanize.Bytes(uint64(drop.PayloadSize)),
		OriginalFilename:    drop.OriginalFilename,
		MimeType:            drop.MimeType,
		Tags:                drop.Tags,
	}

	if drop.BurnAfterReading {
		resp.Warnings = append(resp.Warnings, "burn after reading: the first successful retrieval destroys this drop")
	}
	if remaining := drop.RemainingRetrievals(); remaining == 1 {
		resp.Warnings = append(resp.Warnings, "only one retrieval remaining")
	}
	if left := drop.TimeRemaining(now); left > 0 && left < time.Hour {
		resp.Warnings = append(resp.Warnings, "expires "+humanize.Time(drop.ExpiresAt))
	}
	return resp
}

func readFilePart(r *http.Request, name string) ([]byte, string, error) {
	data, filename, err := readOptionalFilePart(r, name)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", fmt.Errorf("form file %q is required", name)
	}
	return data, filename, nil
}

func readOptionalFilePart(r *http.Request, name string) ([]byte, string, error) {
	file, header, err := r.FormFile(name)
	if err == http.ErrMissingFile {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read form file %q: %w", name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read form file %q: %w", name, err)
	}
	return data, partFilename(header), nil
}

func partFilename(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	name := strings.TrimSpace(header.Filename)
	// Strip any path a browser or odd client may have included.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
