package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/cfindicator/internal/indicator"
	"github.com/dgnsrekt/cfindicator/internal/prefs"
	"github.com/dgnsrekt/cfindicator/internal/record"
)

type tabIDInput struct {
	TabID int `path:"tab_id" minimum:"0" doc:"Browser tab id"`
}

// TabView is a tracked tab together with its indicator, if one is shown.
type TabView struct {
	record.Summary
	Indicator *indicator.State `json:"indicator,omitempty"`
}

func registerHealthHandlers(api huma.API, deps Deps) {
	type healthOutput struct {
		Body struct {
			Status      string `json:"status"`
			Tabs        int    `json:"tabs"`
			Subscribers int    `json:"subscribers"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			tabs, err := deps.Service.Tabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Tabs = len(tabs)
			out.Body.Subscribers = deps.Broker.ClientCount()
			return out, nil
		})
}

func registerTabHandlers(api huma.API, deps Deps) {
	type listTabsOutput struct {
		Body struct {
			Tabs []TabView `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List tracked tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := deps.Service.Tabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = make([]TabView, 0, len(tabs))
			for _, s := range tabs {
				out.Body.Tabs = append(out.Body.Tabs, viewOf(deps.Board, s))
			}
			return out, nil
		})

	type getTabOutput struct {
		Body TabView
	}
	huma.Register(api, huma.Operation{OperationID: "get-tab", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}", Summary: "Get the request record for a tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*getTabOutput, error) {
			s, ok, err := deps.Service.Tab(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			if !ok {
				return nil, huma.Error404NotFound(fmt.Sprintf("tab %d is not tracked", input.TabID))
			}
			return &getTabOutput{Body: viewOf(deps.Board, s)}, nil
		})

	type replaceTabInput struct {
		TabID int `path:"tab_id" minimum:"0" doc:"Tab being replaced"`
		Body  struct {
			AddedTabID int `json:"added_tab_id" minimum:"0" doc:"Tab that takes over the record"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "replace-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/replace", Summary: "Move a tab's record to a replacement tab", Tags: []string{"Tabs"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *replaceTabInput) (*struct{}, error) {
			if input.Body.AddedTabID == input.TabID {
				return nil, huma.Error400BadRequest("added_tab_id must differ from tab_id")
			}
			deps.Service.TabReplaced(input.Body.AddedTabID, input.TabID)
			return nil, nil
		})

	huma.Register(api, huma.Operation{OperationID: "remove-tab", Method: http.MethodDelete, Path: "/api/v1/tabs/{tab_id}", Summary: "Forget a tab", Tags: []string{"Tabs"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *tabIDInput) (*struct{}, error) {
			deps.Service.TabRemoved(input.TabID)
			return nil, nil
		})
}

func registerIndicatorHandlers(api huma.API, deps Deps) {
	type listIndicatorsOutput struct {
		Body struct {
			Indicators []indicator.State `json:"indicators"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-indicators", Method: http.MethodGet, Path: "/api/v1/indicators", Summary: "List indicator state per tab", Tags: []string{"Indicators"}},
		func(ctx context.Context, input *struct{}) (*listIndicatorsOutput, error) {
			out := &listIndicatorsOutput{}
			out.Body.Indicators = deps.Board.List()
			return out, nil
		})
}

func registerPrefHandlers(api huma.API, deps Deps) {
	type debugLoggingOutput struct {
		Body struct {
			Enabled bool `json:"enabled"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-debug-logging", Method: http.MethodGet, Path: "/api/v1/prefs/debug-logging", Summary: "Get the debug logging preference", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *struct{}) (*debugLoggingOutput, error) {
			value, _, err := deps.Prefs.Get(ctx, prefs.DebugLoggingKey)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &debugLoggingOutput{}
			out.Body.Enabled = value == "yes"
			return out, nil
		})

	type setDebugLoggingInput struct {
		Body struct {
			Enabled bool `json:"enabled"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-debug-logging", Method: http.MethodPut, Path: "/api/v1/prefs/debug-logging", Summary: "Set the debug logging preference", Tags: []string{"Preferences"}},
		func(ctx context.Context, input *setDebugLoggingInput) (*debugLoggingOutput, error) {
			value := "no"
			if input.Body.Enabled {
				value = "yes"
			}
			if err := deps.Prefs.Set(ctx, prefs.DebugLoggingKey, value); err != nil {
				return nil, mapErr(err)
			}
			out := &debugLoggingOutput{}
			out.Body.Enabled = input.Body.Enabled
			return out, nil
		})
}

func viewOf(board Board, s record.Summary) TabView {
	v := TabView{Summary: s}
	if st, ok := board.Get(s.TabID); ok {
		v.Indicator = &st
	}
	return v
}
