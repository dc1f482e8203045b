package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/meikuraledutech/funnel"
)

type createFunnelRequest struct {
	ID     string         `json:"id" validate:"omitempty,max=128"`
	Name   string         `json:"name" validate:"required,max=200"`
	Stages []funnel.Stage `json:"stages"`
}

type createStageRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Index *int   `json:"index" validate:"omitempty,min=0"`
}

type renameStageRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type componentsRequest struct {
	Components []funnel.Component `json:"components" validate:"required"`
}

type positionRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type connectionRequest struct {
	SourceBranchID string `json:"sourceBranchId" validate:"max=256"`
	ToStageID      string `json:"toStageId" validate:"required"`
}

type reorderRequest struct {
	StageIDs []string `json:"stage_ids" validate:"required,dive,required"`
}

type sessionRequest struct {
	SessionID       string   `json:"session_id" validate:"omitempty,max=128"`
	VisitedStageIDs []string `json:"visited_stage_ids" validate:"required,dive,required"`
	Completed       bool     `json:"completed"`
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe flattens validator errors into one message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
