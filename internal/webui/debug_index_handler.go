package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

// sessionSummary is one row of the sessions listing.
type sessionSummary struct {
	ID          string
	Destination string
	Phase       string
	StepIndex   int
	HasArrived  bool
}

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	dataStruct := debugData{
		Title: title,
		Pre:   dumper.Sdump(data),
	}

	if err := debugTemplate.Execute(w, dataStruct); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	switch dataType {
	case "sessions":
		sessions := webUI.Sessions.List()
		summaries := make([]sessionSummary, 0, len(sessions))
		for _, s := range sessions {
			state := s.State()
			summaries = append(summaries, sessionSummary{
				ID:          s.ID(),
				Destination: s.Destination().DisplayName(),
				Phase:       state.Phase.String(),
				StepIndex:   state.CurrentStepIndex,
				HasArrived:  state.HasArrived,
			})
		}
		data = summaries
		title = "Navigation Sessions"
	case "session":
		id := r.URL.Query().Get("id")
		s, err := webUI.Sessions.Get(id)
		if err != nil {
			data = map[string]string{"error": err.Error(), "id": id}
			title = "Session not found"
			break
		}
		data = struct {
			State interface{}
			Frame interface{}
		}{s.State(), s.Frame()}
		title = "Session " + id
	case "config":
		data = webUI.Sessions.Config()
		title = "Navigation Config"
	default:
		data = map[string]string{
			"error": "Please use one of the following: sessions, session (with id), config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

// debugSessionsHandler lists the live sessions, or dumps one when ?id= is set.
func (webUI *WebUI) debugSessionsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("id") != "" {
		query.Set("dataType", "session")
	} else {
		query.Set("dataType", "sessions")
	}
	r2 := r.Clone(r.Context())
	r2.URL.RawQuery = query.Encode()
	webUI.debugIndexHandler(w, r2)
}
