package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spycats/internal/breeds"
	"spycats/internal/engine"
	"spycats/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"mission_completed"`
	Message string         `json:"message" example:"mission already completed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Spy Cat Agency API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	hcfg := huma.DefaultConfig("Spy Cat Agency API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCats(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerTargets(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ib breeds.InvalidBreedError
	if errors.As(err, &ib) {
		return newAPIError(http.StatusBadRequest, "invalid_breed", err.Error(), map[string]any{"breed": ib.Breed})
	}
	switch {
	case errors.Is(err, breeds.ErrCatalogUnavailable):
		return newAPIError(http.StatusBadRequest, "breed_catalog_unavailable", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrCatAssigned):
		return newAPIError(http.StatusBadRequest, "cat_assigned", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidTargetCount):
		return newAPIError(http.StatusBadRequest, "invalid_target_count", err.Error(), nil)
	case errors.Is(err, engine.ErrMissionCompleted):
		return newAPIError(http.StatusBadRequest, "mission_completed", err.Error(), nil)
	case errors.Is(err, engine.ErrTargetNotesLocked):
		return newAPIError(http.StatusBadRequest, "notes_locked", err.Error(), nil)
	case errors.Is(err, engine.ErrCompletionReverted):
		return newAPIError(http.StatusBadRequest, "completion_reverted", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "required") || strings.Contains(lowered, "must") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Spy Cat Agency API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type listQuery struct {
	Skip  int `query:"skip" minimum:"0" default:"0"`
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"100"`
}

func registerCats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-cat",
		Method:        http.MethodPost,
		Path:          "/cats",
		Summary:       "Recruit a spy cat",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateCatRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.CreateCat(ctx, engine.CatCreateOptions{
			Name:              input.Body.Name,
			YearsOfExperience: input.Body.YearsOfExperience,
			Breed:             input.Body.Breed,
			Salary:            input.Body.Salary,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cats",
		Method:      http.MethodGet,
		Path:        "/cats",
		Summary:     "List spy cats",
	}, func(ctx context.Context, input *listQuery) (*struct {
		Body catList `json:"body"`
	}, error) {
		cats, err := e.Repo.ListCats(ctx, input.Skip, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]CatResponse, 0, len(cats))
		for _, c := range cats {
			items = append(items, catResponse(c))
		}
		return &struct {
			Body catList `json:"body"`
		}{Body: catList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-cat",
		Method:      http.MethodGet,
		Path:        "/cats/{cat_id}",
		Summary:     "Get a spy cat",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CatID string `path:"cat_id"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.GetCat(ctx, input.CatID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-cat-salary",
		Method:      http.MethodPut,
		Path:        "/cats/{cat_id}",
		Summary:     "Update a cat's salary",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CatID string              `path:"cat_id"`
		Body  UpdateSalaryRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.UpdateSalary(ctx, input.CatID, input.Body.Salary)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-cat",
		Method:      http.MethodDelete,
		Path:        "/cats/{cat_id}",
		Summary:     "Dismiss a spy cat",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CatID string `path:"cat_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		if err := e.DeleteCat(ctx, input.CatID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "cat deleted"}}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create a mission with its targets",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		opts := engine.MissionCreateOptions{}
		if input.Body.CatID != nil {
			opts.CatID = *input.Body.CatID
		}
		for _, t := range input.Body.Targets {
			opts.Targets = append(opts.Targets, engine.TargetInput{Name: t.Name, Country: t.Country})
		}
		m, err := e.CreateMission(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *listQuery) (*struct {
		Body missionList `json:"body"`
	}, error) {
		missions, err := e.Repo.ListMissions(ctx, input.Skip, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]MissionResponse, 0, len(missions))
		for _, m := range missions {
			items = append(items, missionResponse(m))
		}
		return &struct {
			Body missionList `json:"body"`
		}{Body: missionList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}",
		Summary:     "Get a mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-mission",
		Method:      http.MethodDelete,
		Path:        "/missions/{mission_id}",
		Summary:     "Delete a mission and its targets",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		if err := e.DeleteMission(ctx, input.MissionID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "mission deleted"}}, nil
	})
}

func registerTargets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-target",
		Method:      http.MethodGet,
		Path:        "/targets/{target_id}",
		Summary:     "Get a target",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TargetID string `path:"target_id"`
	}) (*struct {
		Body TargetResponse `json:"body"`
	}, error) {
		t, err := e.GetTarget(ctx, input.TargetID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TargetResponse `json:"body"`
		}{Body: targetResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-target",
		Method:      http.MethodPut,
		Path:        "/targets/{target_id}",
		Summary:     "Update target notes or completion",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TargetID string              `path:"target_id"`
		Body     UpdateTargetRequest `json:"body"`
	}) (*struct {
		Body TargetResponse `json:"body"`
	}, error) {
		t, err := e.UpdateTarget(ctx, engine.TargetUpdateOptions{
			ID:          input.TargetID,
			Notes:       input.Body.Notes,
			IsCompleted: input.Body.IsCompleted,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TargetResponse `json:"body"`
		}{Body: targetResponse(t)}, nil
	})
}
