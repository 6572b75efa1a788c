package router

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// Param extracts a path parameter by name
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// BlueprintID extracts the record id of a blueprint route. The parameter
// name is derived from the controller: user_controller reads {userid}.
func BlueprintID(r *http.Request, controller string) (string, error) {
	name, ok := plumbing.IDParamName(controller)
	if !ok {
		return "", fmt.Errorf("%q is not a blueprint controller name", controller)
	}
	value := chi.URLParam(r, name)
	if value == "" {
		return "", fmt.Errorf("missing path parameter: %s", name)
	}
	return value, nil
}

// ParamUUID extracts a path parameter and converts it to UUID
func ParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return uuid.Nil, fmt.Errorf("missing path parameter: %s", name)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID for parameter %s: %w", name, err)
	}
	return id, nil
}

// ParamInt64 extracts a path parameter and converts it to int64
func ParamInt64(r *http.Request, name string) (int64, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}

	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 for parameter %s: %w", name, err)
	}
	return i, nil
}
