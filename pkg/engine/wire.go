package engine

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
)

// flexString accepts ids the engine encodes either as strings or as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""

		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*f = flexString(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	*f = flexString(n.String())

	return nil
}

type wireTag struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type wireWorkflow struct {
	ID        flexString `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	Tags      []wireTag  `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (w wireWorkflow) toModel() models.Workflow {
	wf := models.Workflow{
		ID:        string(w.ID),
		Name:      w.Name,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}

	for _, tag := range w.Tags {
		if tag.Name != "" {
			wf.Tags = append(wf.Tags, tag.Name)
		}
	}

	return wf
}

type wireExecutionError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

type wireExecution struct {
	ID             flexString `json:"id"`
	Finished       bool       `json:"finished"`
	Mode           string     `json:"mode"`
	RetryOf        flexString `json:"retryOf"`
	RetrySuccessID flexString `json:"retrySuccessId"`
	StartedAt      time.Time  `json:"startedAt"`
	StoppedAt      *time.Time `json:"stoppedAt"`
	WorkflowID     flexString `json:"workflowId"`
	Status         string     `json:"status"`
	WorkflowData   *struct {
		Name string `json:"name"`
	} `json:"workflowData"`
	Data *struct {
		ResultData struct {
			Error            *wireExecutionError `json:"error"`
			LastNodeExecuted string              `json:"lastNodeExecuted"`
		} `json:"resultData"`
	} `json:"data"`
}

func (e wireExecution) toModel() models.Execution {
	ex := models.Execution{
		ID:             string(e.ID),
		WorkflowID:     string(e.WorkflowID),
		Mode:           e.Mode,
		RetryOf:        string(e.RetryOf),
		RetrySuccessID: string(e.RetrySuccessID),
		StartedAt:      e.StartedAt,
		StoppedAt:      e.StoppedAt,
		Status:         models.ExecutionStatus(e.Status),
	}

	// Older engine versions omit status and only report finished.
	if ex.Status == "" {
		if e.Finished {
			ex.Status = models.ExecutionStatusSuccess
		} else if e.StoppedAt != nil {
			ex.Status = models.ExecutionStatusError
		} else {
			ex.Status = models.ExecutionStatusRunning
		}
	}

	if e.WorkflowData != nil {
		ex.WorkflowName = e.WorkflowData.Name
	}

	if e.Data != nil && e.Data.ResultData.Error != nil {
		ex.ErrorMessage = e.Data.ResultData.Error.Message
		if ex.ErrorMessage == "" {
			ex.ErrorMessage = e.Data.ResultData.Error.Description
		}
	}

	return ex
}

type workflowPage struct {
	Data       []wireWorkflow `json:"data"`
	NextCursor *string        `json:"nextCursor"`
}

type executionPage struct {
	Data       []wireExecution `json:"data"`
	NextCursor *string         `json:"nextCursor"`
}
