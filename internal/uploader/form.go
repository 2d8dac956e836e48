package uploader

import (
	"context"
	"errors"
	"io"
	"sync"
)

// State is the phase of a receipt upload form.
type State int

const (
	Idle State = iota
	Selected
	Uploading
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Uploading:
		return "uploading"
	case Done:
		return "done"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Messages shown when a step of the flow fails with a non-2xx answer.
const (
	MsgNoFile     = "please select a file"
	MsgSignFailed = "failed to get upload URL"
	MsgPutFailed  = "failed to upload file"
	MsgAttachFail = "failed to attach receipt"
)

// ErrBusy is returned by Select and Submit while an upload is running.
var ErrBusy = errors.New("upload in progress")

// File is the receipt chosen by the user. Size may be -1 when unknown. Body
// is rewound before every upload attempt.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// SubmitError is the failure reported by Submit. Message is what the form
// displays; Err is the underlying cause, if any.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// Form drives one expense's receipt upload: sign, PUT bytes, attach the key.
// The three steps run strictly in order and nothing is retried.
type Form struct {
	client    *Client
	expenseID int64

	onSuccess func()
	onChange  func(State)

	mu    sync.Mutex
	state State
	file  *File
	msg   string
}

// Option configures a Form.
type Option func(*Form)

// WithOnSuccess registers fn to run after the key is attached.
func WithOnSuccess(fn func()) Option {
	return func(f *Form) { f.onSuccess = fn }
}

// WithOnChange registers fn to observe every state transition.
func WithOnChange(fn func(State)) Option {
	return func(f *Form) { f.onChange = fn }
}

// NewForm creates an idle form for the expense with id expenseID.
func NewForm(client *Client, expenseID int64, opts ...Option) *Form {
	f := &Form{client: client, expenseID: expenseID}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Message returns the error message shown to the user, or "".
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msg
}

// Selected returns the chosen file, or nil.
func (f *Form) Selected() *File {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file
}

// Select chooses file and clears any previous error. A nil file leaves the
// form unchanged.
func (f *Form) Select(file *File) error {
	f.mu.Lock()
	if f.state == Uploading {
		f.mu.Unlock()
		return ErrBusy
	}
	if file == nil {
		f.mu.Unlock()
		return nil
	}
	f.file = file
	f.msg = ""
	f.mu.Unlock()

	f.transition(Selected)
	return nil
}

// Submit runs the upload for the selected file. On failure the form moves to
// Failed and keeps the file so the user may submit again.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Uploading {
		f.mu.Unlock()
		return ErrBusy
	}
	f.msg = ""
	file := f.file
	if file != nil {
		f.state = Uploading
	}
	f.mu.Unlock()

	if file == nil {
		return f.fail(&SubmitError{Message: MsgNoFile})
	}
	f.notify(Uploading)

	if err := f.run(ctx, file); err != nil {
		return f.fail(err)
	}

	f.mu.Lock()
	f.file = nil
	f.mu.Unlock()
	f.transition(Done)
	if f.onSuccess != nil {
		f.onSuccess()
	}
	f.transition(Idle)
	return nil
}

func (f *Form) run(ctx context.Context, file *File) error {
	ticket, err := f.client.SignUpload(ctx, file.Name, file.ContentType)
	if err != nil {
		return stepError(MsgSignFailed, err)
	}
	if _, err := file.Body.Seek(0, io.SeekStart); err != nil {
		return stepError(MsgPutFailed, err)
	}
	if err := f.client.PutObject(ctx, ticket.UploadURL, contentTypeOf(file), file.Body, file.Size); err != nil {
		return stepError(MsgPutFailed, err)
	}
	if _, err := f.client.AttachKey(ctx, f.expenseID, ticket.Key); err != nil {
		return stepError(MsgAttachFail, err)
	}
	return nil
}

// stepError maps an API rejection to the step's message. Transport failures
// keep their own text.
func stepError(msg string, err error) *SubmitError {
	var ae *APIError
	if errors.As(err, &ae) {
		return &SubmitError{Message: msg, Err: err}
	}
	return &SubmitError{Message: err.Error(), Err: err}
}

func (f *Form) fail(err *SubmitError) error {
	f.mu.Lock()
	f.msg = err.Message
	f.mu.Unlock()
	f.transition(Failed)
	return err
}

func (f *Form) transition(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	f.notify(s)
}

func (f *Form) notify(s State) {
	if f.onChange != nil {
		f.onChange(s)
	}
}

func contentTypeOf(file *File) string {
	if file.ContentType == "" {
		return "application/octet-stream"
	}
	return file.ContentType
}
