package sportmonks

import (
	"bytes"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

type fixturePage struct {
	Data       []fixtureItem `json:"data"`
	Pagination struct {
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

type fixtureItem struct {
	ID           int64           `json:"id"`
	LeagueID     int64           `json:"league_id"`
	StartingAt   string          `json:"starting_at"`
	StateID      int64           `json:"state_id"`
	ResultInfo   string          `json:"result_info"`
	Participants []participant   `json:"participants"`
	Scores       []scoreEntry    `json:"scores"`
	Venue        include[named]  `json:"venue"`
	League       include[named]  `json:"league"`
	State        include[stateV] `json:"state"`
}

type participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Meta struct {
		Location string `json:"location"`
	} `json:"meta"`
}

type named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type stateV struct {
	ID int64 `json:"id"`
}

// scoreEntry is one row of the scores include. Goals show up under several
// keys depending on plan and endpoint.
type scoreEntry struct {
	ParticipantID int64          `json:"participant_id"`
	Description   string         `json:"description"`
	Goals         any            `json:"goals"`
	Score         map[string]any `json:"score"`
	Data          map[string]any `json:"data"`
}

func (s scoreEntry) goals() (int, bool) {
	candidates := []any{s.Goals, s.Data["goals"], s.Data["value"], s.Score["goals"], s.Score["score"], s.Score["value"]}
	for _, candidate := range candidates {
		if n, ok := toNonNegativeInt(candidate); ok {
			return n, true
		}
	}
	return 0, false
}

func toNonNegativeInt(v any) (int, bool) {
	var f float64
	switch typed := v.(type) {
	case float64:
		f = typed
	case int64:
		f = float64(typed)
	case int:
		f = float64(typed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 {
		return 0, false
	}
	return int(f), true
}

// include decodes a relation that may arrive bare or wrapped in {"data": ...}.
type include[T any] struct {
	Data T
	Set  bool
}

func (r *include[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = include[T]{}
		return nil
	}

	var wrapped struct {
		Data *T `json:"data"`
	}
	if err := sonic.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		r.Data, r.Set = *wrapped.Data, true
		return nil
	}
	if err := sonic.Unmarshal(data, &r.Data); err != nil {
		return err
	}
	r.Set = true
	return nil
}
