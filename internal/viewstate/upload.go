package viewstate

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

const (
	uploadFailedPrefix = "Upload failed: "
	requiredFieldsMsg  = "Please fill in all required fields"
)

// Upload form field names.
const (
	FieldName        = "name"
	FieldUnitCode    = "unit_code"
	FieldUnitName    = "unit_name"
	FieldYearOfStudy = "year_of_study"
	FieldSemester    = "semester"
	FieldPaperYear   = "paper_year"
	FieldPaperType   = "paper_type"
	FieldDepartment  = "department"
	FieldFile        = "file"
)

// UploadForm holds the raw text of every form field.
type UploadForm struct {
	Name        string `json:"name"`
	UnitCode    string `json:"unit_code"`
	UnitName    string `json:"unit_name"`
	YearOfStudy string `json:"year_of_study"`
	Semester    string `json:"semester"`
	PaperYear   string `json:"paper_year"`
	PaperType   string `json:"paper_type"`
	Department  string `json:"department"`
}

// UploadState is the upload form and progress.
type UploadState struct {
	Status
	Form        UploadForm        `json:"form"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	CanUpload   bool              `json:"can_upload"`
	FileName    string            `json:"file_name,omitempty"`
	FileSize    int64             `json:"file_size,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Received    int64             `json:"received"`
	Uploading   bool              `json:"uploading"`
	Progress    int               `json:"progress"`
	Success     bool              `json:"success"`
	PaperID     int64             `json:"paper_id,omitempty"`
}

// Upload is the upload form controller. File bytes arrive through ReceiveFile
// after a select_file intent announced them.
type Upload struct {
	*base[UploadState]
	deps   Deps
	userID int64

	fileMu sync.Mutex
	file   bytes.Buffer
}

// NewUpload constructs the upload form for userID.
func NewUpload(deps Deps, userID int64) *Upload {
	return &Upload{
		base:   newBase(ScreenUpload, UploadState{}, func(s *UploadState) *Status { return &s.Status }, deps.Logger),
		deps:   deps,
		userID: userID,
	}
}

// Mount shows the empty form. It has no streams.
func (u *Upload) Mount(ctx context.Context) error {
	if _, err := u.start(ctx); err != nil {
		return err
	}
	u.update(func(s *UploadState) {
		s.hasData = true
		s.apply(EventData, "")
	})
	return nil
}

// Handle applies set_field, select_file, submit and reset.
func (u *Upload) Handle(intent Intent) error {
	switch intent.Type {
	case "set_field":
		var p struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		var setErr error
		u.update(func(s *UploadState) {
			if s.Uploading {
				return
			}
			if setErr = setField(&s.Form, p.Field, p.Value); setErr != nil {
				return
			}
			if s.FieldErrors != nil {
				s.FieldErrors = validateForm(s.Form, s.FileName != "")
			}
			s.Success = false
			s.CanUpload = u.ready(s)
		})
		return setErr
	case "select_file":
		var p struct {
			FileName    string `json:"file_name"`
			ContentType string `json:"content_type"`
			Size        int64  `json:"size"`
		}
		if err := decode(intent, &p); err != nil {
			return err
		}
		if p.FileName == "" || p.Size <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "file is required")
		}
		if max := u.deps.Uploads.MaxFileBytes(); max > 0 && p.Size > max {
			return appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds the maximum upload size")
		}
		u.fileMu.Lock()
		u.file.Reset()
		u.fileMu.Unlock()
		u.update(func(s *UploadState) {
			s.FileName, s.ContentType, s.FileSize, s.Received = p.FileName, p.ContentType, p.Size, 0
			s.Success = false
			s.CanUpload = u.ready(s)
		})
		return nil
	case "submit":
		return u.submit()
	case "reset":
		u.clear()
		u.update(func(s *UploadState) {
			*s = UploadState{Status: Status{Phase: s.Phase, hasData: s.hasData}}
		})
		return nil
	default:
		return ErrUnknownIntent
	}
}

// ReceiveFile appends a chunk of the selected file.
func (u *Upload) ReceiveFile(chunk []byte) error {
	state := u.State()
	if state.FileName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "select a file before sending its content")
	}
	if state.Uploading {
		return appErrors.Clone(appErrors.ErrConflict, "upload in progress")
	}

	u.fileMu.Lock()
	if int64(u.file.Len()+len(chunk)) > state.FileSize {
		u.fileMu.Unlock()
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "file content exceeds the announced size")
	}
	u.file.Write(chunk)
	received := int64(u.file.Len())
	u.fileMu.Unlock()

	u.update(func(s *UploadState) {
		s.Received = received
		s.CanUpload = u.ready(s)
	})
	return nil
}

func (u *Upload) submit() error {
	var (
		req     models.UploadPaperRequest
		invalid bool
		busy    bool
	)
	u.update(func(s *UploadState) {
		if s.Uploading {
			busy = true
			return
		}
		errs := validateForm(s.Form, s.FileName != "")
		if s.FileName != "" && s.Received != s.FileSize {
			errs[FieldFile] = "file is still being received"
		}
		if len(errs) > 0 {
			invalid = true
			s.FieldErrors = errs
			s.CanUpload = false
			s.Message = requiredFieldsMsg
			return
		}
		s.FieldErrors = nil
		s.Uploading, s.Progress, s.Success, s.Message = true, 0, false, ""
		s.CanUpload = false
		req = buildRequest(s)
	})
	if busy {
		return appErrors.Clone(appErrors.ErrConflict, "upload in progress")
	}
	if invalid {
		return nil
	}

	u.fileMu.Lock()
	content := bytes.NewReader(append([]byte(nil), u.file.Bytes()...))
	u.fileMu.Unlock()

	u.async(func(ctx context.Context) {
		reader := &progressReader{r: content, total: int64(content.Len()), report: func(pct int) {
			u.update(func(s *UploadState) {
				if pct > s.Progress {
					s.Progress = pct
				}
			})
		}}
		result, err := u.deps.Uploads.Upload(ctx, u.userID, req, reader)
		if err != nil {
			msg := errorMessage(err)
			if !strings.HasPrefix(msg, uploadFailedPrefix) {
				msg = uploadFailedPrefix + msg
			}
			u.update(func(s *UploadState) {
				s.Uploading, s.Progress = false, 0
				s.Message = msg
				s.CanUpload = u.ready(s)
			})
			return
		}
		u.clear()
		u.update(func(s *UploadState) {
			*s = UploadState{
				Status:   Status{Phase: s.Phase, hasData: s.hasData, Message: "Paper uploaded successfully"},
				Progress: 100,
				Success:  true,
				PaperID:  result.Paper.ID,
			}
		})
	})
	return nil
}

func (u *Upload) clear() {
	u.fileMu.Lock()
	u.file.Reset()
	u.fileMu.Unlock()
}

func (u *Upload) ready(s *UploadState) bool {
	return !s.Uploading && s.FileName != "" && s.Received == s.FileSize && len(validateForm(s.Form, true)) == 0
}

func setField(form *UploadForm, field, value string) error {
	switch field {
	case FieldName:
		form.Name = value
	case FieldUnitCode:
		form.UnitCode = strings.ToUpper(value)
	case FieldUnitName:
		form.UnitName = value
	case FieldYearOfStudy:
		form.YearOfStudy = value
	case FieldSemester:
		form.Semester = value
	case FieldPaperYear:
		value = digits(value)
		if len(value) > 4 {
			value = value[:4]
		}
		form.PaperYear = value
	case FieldPaperType:
		form.PaperType = value
	case FieldDepartment:
		form.Department = value
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown field "+field)
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateForm returns the errors of every invalid field. It always returns a new map.
func validateForm(form UploadForm, hasFile bool) map[string]string {
	errs := map[string]string{}
	required := map[string]string{
		FieldName:        form.Name,
		FieldUnitCode:    form.UnitCode,
		FieldUnitName:    form.UnitName,
		FieldYearOfStudy: form.YearOfStudy,
		FieldSemester:    form.Semester,
		FieldPaperYear:   form.PaperYear,
		FieldPaperType:   form.PaperType,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			errs[field] = "required"
		}
	}
	if v, err := strconv.Atoi(form.YearOfStudy); form.YearOfStudy != "" && (err != nil || v < 1 || v > 4) {
		errs[FieldYearOfStudy] = "must be between 1 and 4"
	}
	if v, err := strconv.Atoi(form.Semester); form.Semester != "" && (err != nil || v < 1 || v > 2) {
		errs[FieldSemester] = "must be 1 or 2"
	}
	if form.PaperYear != "" && len(form.PaperYear) != 4 {
		errs[FieldPaperYear] = "must be a four digit year"
	}
	if form.PaperType != "" && !models.PaperType(form.PaperType).Valid() {
		errs[FieldPaperType] = "unknown paper type"
	}
	if !hasFile {
		errs[FieldFile] = "required"
	}
	return errs
}

func buildRequest(s *UploadState) models.UploadPaperRequest {
	year, _ := strconv.Atoi(s.Form.YearOfStudy)
	semester, _ := strconv.Atoi(s.Form.Semester)
	paperYear, _ := strconv.Atoi(s.Form.PaperYear)
	return models.UploadPaperRequest{
		Name:        s.Form.Name,
		UnitCode:    s.Form.UnitCode,
		UnitName:    s.Form.UnitName,
		YearOfStudy: year,
		Semester:    semester,
		PaperYear:   paperYear,
		PaperType:   models.PaperType(s.Form.PaperType),
		Department:  s.Form.Department,
		FileName:    s.FileName,
		ContentType: s.ContentType,
		FileSize:    s.FileSize,
	}
}

// progressReader reports the share of total read so far. 100 is left to the caller.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
