package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/pipeline"
	"github.com/matzehuels/rpviz/pkg/runlog"
)

// Form fields of the visualize request.
const (
	fieldFile    = "file"
	fieldFormat  = "input_format"
	fieldChassis = "chassis_name"
	fieldTarget  = "target_name"
	fieldUID     = "uid"
)

// Response headers of the visualize request.
const (
	HeaderRunID    = "X-Rpviz-Run-Id"
	HeaderWarnings = "X-Rpviz-Warnings"
	HeaderLocation = "X-Rpviz-Location"
)

const (
	maxMemory       = 32 << 20
	defaultRunLimit = 50
)

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runner == nil {
		writeError(w, http.StatusInternalServerError, "pipeline not configured")
		return
	}
	if r.ContentLength > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "the file field is required")
		return
	}
	defer file.Close()

	work, err := os.MkdirTemp(s.cfg.TempDir, "rpviz-request-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create workspace")
		return
	}
	defer os.RemoveAll(work)

	input, err := saveUpload(work, file, header)
	if err != nil {
		s.logger.Error("save upload", "err", err)
		writeError(w, http.StatusInternalServerError, "store upload")
		return
	}

	opts := pipeline.Options{
		Input:            input,
		Format:           r.FormValue(fieldFormat),
		TempDir:          s.cfg.TempDir,
		Chassis:          r.FormValue(fieldChassis),
		Target:           r.FormValue(fieldTarget),
		UniqueID:         r.FormValue(fieldUID),
		CofactorTable:    s.cfg.CofactorTable,
		Workers:          s.cfg.Workers,
		DepictionTimeout: s.cfg.DepictionTimeout,
		Autonomous:       filepath.Join(work, "autonomous.html"),
		TemplateDir:      s.cfg.TemplateDir,
	}
	res, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("visualize", "uid", opts.UniqueID, "err", err)
		}
		writeError(w, status, rperrors.UserMessage(err))
		return
	}
	doc, err := os.ReadFile(res.BundlePath)
	if err != nil {
		s.logger.Error("read document", "err", err)
		writeError(w, http.StatusInternalServerError, "read document")
		return
	}

	location := ""
	if s.cfg.Publisher != nil {
		location, err = s.cfg.Publisher.Publish(r.Context(), res.RunID+".html", doc)
		if err != nil {
			// The caller still receives the document.
			s.logger.Warn("publish failed", "run", res.RunID, "err", err)
			location = ""
		}
	}
	if s.cfg.Runs != nil {
		if err := s.cfg.Runs.Save(r.Context(), runlog.NewRecord(res, location)); err != nil {
			s.logger.Warn("save run record", "uid", opts.UniqueID, "err", err)
		}
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Disposition", `attachment; filename="`+documentName(header.Filename)+`"`)
	h.Set(HeaderRunID, res.RunID)
	h.Set(HeaderWarnings, strconv.Itoa(len(res.Warnings)))
	if location != "" {
		h.Set(HeaderLocation, location)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		writeError(w, http.StatusNotFound, "run records are disabled")
		return
	}
	uid := chi.URLParam(r, "uid")
	rec, err := s.cfg.Runs.Get(r.Context(), uid)
	if err != nil {
		if runlog.IsNotFound(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no run for %q", uid))
			return
		}
		s.logger.Error("get run", "uid", uid, "err", err)
		writeError(w, http.StatusInternalServerError, "read run record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": rec})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []runlog.Record{}})
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := s.cfg.Runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "err", err)
		writeError(w, http.StatusInternalServerError, "read run records")
		return
	}
	if recs == nil {
		recs = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": recs})
}

// saveUpload copies the uploaded file into dir. The client's file name only
// contributes its extension.
func saveUpload(dir string, file multipart.File, header *multipart.FileHeader) (string, error) {
	name := "upload" + strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return "", err
	}
	return path, out.Close()
}

// documentName derives the download name from the uploaded file name.
func documentName(upload string) string {
	base := filepath.Base(strings.ReplaceAll(upload, `\`, "/"))
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.zst", ".tgz", ".tar", ".xml", ".sbml"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "pathways"
	}
	return base + ".html"
}
