package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// DecodeError reports a response body that could not be turned into Target.
type DecodeError struct {
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errMissingID     = errors.New("missing id")
	errMissingTaskID = errors.New("missing taskId")
	errMissingSchema = errors.New("missing validator.schema")
	errMissingTime   = errors.New("missing invokedAt")
)

func DecodeTask(data []byte) (domain.Task, error) {
	var w TaskWire
	if err := unmarshal(data, &w); err != nil {
		return domain.Task{}, &DecodeError{Target: "task", Err: err}
	}
	t, err := TaskFromWire(w)
	if err != nil {
		return domain.Task{}, &DecodeError{Target: "task", Err: err}
	}
	return t, nil
}

func DecodeTaskPage(data []byte) (domain.Page[domain.Task], error) {
	var w PageWire[TaskWire]
	if err := unmarshal(data, &w); err != nil {
		return domain.Page[domain.Task]{}, &DecodeError{Target: "task page", Err: err}
	}
	out := domain.Page[domain.Task]{Page: w.Page, PageSize: w.PageSize, Results: make([]domain.Task, 0, len(w.Results))}
	for i, tw := range w.Results {
		t, err := TaskFromWire(tw)
		if err != nil {
			return domain.Page[domain.Task]{}, &DecodeError{Target: fmt.Sprintf("task page results[%d]", i), Err: err}
		}
		out.Results = append(out.Results, t)
	}
	return out, nil
}

func DecodeExecution(data []byte) (domain.Execution, error) {
	var w ExecutionWire
	if err := unmarshal(data, &w); err != nil {
		return domain.Execution{}, &DecodeError{Target: "execution", Err: err}
	}
	e, err := ExecutionFromWire(w)
	if err != nil {
		return domain.Execution{}, &DecodeError{Target: "execution", Err: err}
	}
	return e, nil
}

func DecodeExecutionPage(data []byte) (domain.Page[domain.Execution], error) {
	var w PageWire[ExecutionWire]
	if err := unmarshal(data, &w); err != nil {
		return domain.Page[domain.Execution]{}, &DecodeError{Target: "execution page", Err: err}
	}
	out := domain.Page[domain.Execution]{Page: w.Page, PageSize: w.PageSize, Results: make([]domain.Execution, 0, len(w.Results))}
	for i, ew := range w.Results {
		e, err := ExecutionFromWire(ew)
		if err != nil {
			return domain.Page[domain.Execution]{}, &DecodeError{Target: fmt.Sprintf("execution page results[%d]", i), Err: err}
		}
		out.Results = append(out.Results, e)
	}
	return out, nil
}

// DecodeExecutionCreate reads an outbound execution request. Numbers inside
// arguments are kept as json.Number so integer checks stay exact.
func DecodeExecutionCreate(data []byte) (domain.ExecutionCreate, error) {
	var w ExecutionCreateWire
	if err := unmarshal(data, &w); err != nil {
		return domain.ExecutionCreate{}, &DecodeError{Target: "execution request", Err: err}
	}
	if w.TaskID == uuid.Nil {
		return domain.ExecutionCreate{}, &DecodeError{Target: "execution request", Err: errMissingTaskID}
	}
	return domain.ExecutionCreate{TaskID: w.TaskID, Arguments: w.Arguments}, nil
}

func DecodeExecutionResult(data []byte) (*string, []domain.ResultAsset, error) {
	var w ExecutionResultWire
	if err := unmarshal(data, &w); err != nil {
		return nil, nil, &DecodeError{Target: "execution result", Err: err}
	}
	return w.StatusReason, assetsFromWire(w.Results), nil
}

func EncodeExecutionCreate(req domain.ExecutionCreate) ([]byte, error) {
	return json.Marshal(ExecutionCreateWire{TaskID: req.TaskID, Arguments: req.Arguments})
}

// EncodeExecutionResult renders the body used to record an outcome.
func EncodeExecutionResult(statusReason *string, results []domain.ResultAsset) ([]byte, error) {
	w := ExecutionToWire(domain.Execution{StatusReason: statusReason, Results: results})
	return json.Marshal(ExecutionResultWire{StatusReason: w.StatusReason, Results: w.Results})
}

// DecodeArguments reads stored execution arguments, keeping numbers exact.
func DecodeArguments(data []byte) (any, error) {
	var v any
	if err := unmarshal(data, &v); err != nil {
		return nil, &DecodeError{Target: "arguments", Err: err}
	}
	return v, nil
}

func EncodeTask(t domain.Task) ([]byte, error) {
	return json.Marshal(TaskToWire(t))
}

func EncodeExecution(e domain.Execution) ([]byte, error) {
	return json.Marshal(ExecutionToWire(e))
}

func TaskFromWire(w TaskWire) (domain.Task, error) {
	if w.ID == uuid.Nil {
		return domain.Task{}, errMissingID
	}
	if w.Validator.Schema == nil {
		return domain.Task{}, errMissingSchema
	}
	return domain.Task{
		ID:            w.ID,
		Name:          w.Name,
		Validator:     w.Validator.Schema,
		JobDefinition: w.JobDefinition,
		JobQueue:      w.JobQueue,
	}, nil
}

func TaskToWire(t domain.Task) TaskWire {
	return TaskWire{
		ID:            t.ID,
		Name:          t.Name,
		Validator:     ValidatorWire{Schema: t.Validator},
		JobDefinition: t.JobDefinition,
		JobQueue:      t.JobQueue,
	}
}

func ExecutionFromWire(w ExecutionWire) (domain.Execution, error) {
	if w.ID == uuid.Nil {
		return domain.Execution{}, errMissingID
	}
	if w.TaskID == uuid.Nil {
		return domain.Execution{}, errMissingTaskID
	}
	if time.Time(w.InvokedAt).IsZero() {
		return domain.Execution{}, errMissingTime
	}
	return domain.Execution{
		ID:           w.ID,
		TaskID:       w.TaskID,
		InvokedAt:    time.Time(w.InvokedAt),
		StatusReason: w.StatusReason,
		Results:      assetsFromWire(w.Results),
		WebhookID:    w.WebhookID,
	}, nil
}

func ExecutionToWire(e domain.Execution) ExecutionWire {
	results := make([]ResultAssetWire, 0, len(e.Results))
	for _, a := range e.Results {
		roles := a.Roles
		if roles == nil {
			roles = []string{}
		}
		results = append(results, ResultAssetWire{
			Href:        a.Href,
			Title:       a.Title,
			Description: a.Description,
			Roles:       roles,
			Type:        a.MediaType,
		})
	}
	return ExecutionWire{
		ID:           e.ID,
		TaskID:       e.TaskID,
		InvokedAt:    Timestamp(e.InvokedAt),
		StatusReason: e.StatusReason,
		Results:      results,
		WebhookID:    e.WebhookID,
	}
}

func assetsFromWire(in []ResultAssetWire) []domain.ResultAsset {
	out := make([]domain.ResultAsset, 0, len(in))
	for _, a := range in {
		roles := append([]string{}, a.Roles...)
		out = append(out, domain.ResultAsset{
			Href:        a.Href,
			Title:       a.Title,
			Description: a.Description,
			Roles:       roles,
			MediaType:   a.Type,
		})
	}
	return out
}

func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
