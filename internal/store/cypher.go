package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/ambridge/internal/core/graph"
	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/driver"
)

// CypherStore implements Store over a Cypher-speaking graph database.
type CypherStore struct {
	Driver driver.GraphDriver
}

func NewCypherStore(d driver.GraphDriver) *CypherStore {
	return &CypherStore{Driver: d}
}

func (s *CypherStore) run(ctx context.Context, op, query string, params map[string]interface{}) (*driver.Result, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, opError(op, err)
	}
	return res, nil
}

func (s *CypherStore) UpsertEpisodes(ctx context.Context, chunk []model.EpisodeInput) (int, error) {
	batch := make([]map[string]interface{}, 0, len(chunk))
	for _, ep := range chunk {
		scenes := make([]map[string]interface{}, 0, len(ep.Scenes))
		for _, sc := range ep.Scenes {
			scenes = append(scenes, map[string]interface{}{
				"sid":   sc.ID,
				"index": sc.Index,
				"text":  sc.Text,
			})
		}
		batch = append(batch, map[string]interface{}{
			"pid":      ep.PID,
			"date":     ep.Date,
			"synopsis": ep.Synopsis,
			"scenes":   scenes,
		})
	}
	res, err := s.run(ctx, "upsert episodes", driver.UpsertEpisodesQuery, map[string]interface{}{"batch": batch})
	if err != nil {
		return 0, err
	}
	return res.Counters.NodesCreated, nil
}

func (s *CypherStore) EpisodeDigests(ctx context.Context) ([]model.EpisodeDigest, error) {
	res, err := s.run(ctx, "episode digests", driver.EpisodeDigestsQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.EpisodeDigest, 0, len(res.Records))
	for _, rec := range res.Records {
		date, err := dateValue(rec, "date")
		if err != nil {
			return nil, opError("episode digests", err)
		}
		d := model.EpisodeDigest{
			PID:        stringValue(rec, "pid"),
			Synopsis:   stringValue(rec, "synopsis"),
			SceneTexts: stringList(rec, "texts"),
		}
		if date != nil {
			d.Date = *date
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *CypherStore) DeleteEpisodes(ctx context.Context, pids []string) (int, error) {
	if len(pids) == 0 {
		return 0, nil
	}
	res, err := s.run(ctx, "delete episodes", driver.DeleteEpisodesQuery, map[string]interface{}{"pids": pids})
	if err != nil {
		return 0, err
	}
	return firstCount(res, "count"), nil
}

func (s *CypherStore) SetEpisodeDates(ctx context.Context, changes []model.DateChange) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}
	rows := make([]map[string]interface{}, 0, len(changes))
	for _, ch := range changes {
		rows = append(rows, map[string]interface{}{"pid": ch.PID, "date": model.FormatDate(ch.To)})
	}
	res, err := s.run(ctx, "set episode dates", driver.SetEpisodeDatesQuery, map[string]interface{}{"changes": rows})
	if err != nil {
		return 0, err
	}
	return firstCount(res, "count"), nil
}

func scopeParam(pids []string) interface{} {
	if pids == nil {
		return nil
	}
	return pids
}

func (s *CypherStore) LoadSnapshot(ctx context.Context, pids []string) (*graph.Graph, error) {
	g := graph.New()

	chars, err := s.run(ctx, "load characters", driver.GetCharactersQuery, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range chars.Records {
		c := model.Character{
			Name:     stringValue(rec, "name"),
			Aliases:  stringList(rec, "aliases"),
			Keywords: stringList(rec, "keywords"),
		}
		for key, dst := range map[string]**time.Time{
			"dob":              &c.DOB,
			"dod":              &c.DOD,
			"first_appearance": &c.FirstAppearance,
			"last_appearance":  &c.LastAppearance,
		} {
			d, err := dateValue(rec, key)
			if err != nil {
				return nil, opError("load characters", fmt.Errorf("character %q: %w", c.Name, err))
			}
			*dst = d
		}
		g.AddCharacter(c)
	}

	rels, err := s.run(ctx, "load relations", driver.GetRelationsQuery, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range rels.Records {
		g.AddRelation(model.Relation{
			Kind: model.RelationKind(stringValue(rec, "kind")),
			From: stringValue(rec, "source"),
			To:   stringValue(rec, "target"),
		})
	}

	homes, err := s.run(ctx, "load residences", driver.GetResidencesQuery, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range homes.Records {
		r := model.Residence{
			Kind:      model.ResidenceKind(stringValue(rec, "kind")),
			Character: stringValue(rec, "character"),
			Location:  stringValue(rec, "location"),
		}
		if r.From, err = dateValue(rec, "valid_from"); err != nil {
			return nil, opError("load residences", err)
		}
		if r.To, err = dateValue(rec, "valid_to"); err != nil {
			return nil, opError("load residences", err)
		}
		g.AddResidence(r)
	}

	params := map[string]interface{}{"pids": scopeParam(pids)}
	scenes, err := s.run(ctx, "load scenes", driver.GetScopedScenesQuery, params)
	if err != nil {
		return nil, err
	}
	for _, rec := range scenes.Records {
		pid := stringValue(rec, "pid")
		if _, ok := g.Episode(pid); !ok {
			date, err := dateValue(rec, "date")
			if err != nil || date == nil {
				return nil, opError("load scenes", fmt.Errorf("episode %q has no valid date: %v", pid, err))
			}
			g.PutEpisode(model.Episode{PID: pid, Date: *date, Synopsis: stringValue(rec, "synopsis")})
		}
		g.PutScene(model.Scene{
			ID:         stringValue(rec, "id"),
			EpisodePID: pid,
			Order:      intValue(rec, "scene_order"),
			Text:       stringValue(rec, "text"),
		})
	}

	apps, err := s.run(ctx, "load appearances", driver.GetScopedAppearancesQuery, params)
	if err != nil {
		return nil, err
	}
	for _, rec := range apps.Records {
		g.AddAppearance(stringValue(rec, "character"), stringValue(rec, "scene_id"))
	}
	return g, nil
}

func (s *CypherStore) CreateAppearances(ctx context.Context, apps []model.Appearance) (int, error) {
	if len(apps) == 0 {
		return 0, nil
	}
	rows := make([]map[string]interface{}, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, map[string]interface{}{"character": a.Character, "scene_id": a.SceneID})
	}
	res, err := s.run(ctx, "create appearances", driver.SaveAppearancesQuery, map[string]interface{}{"rows": rows})
	if err != nil {
		return 0, err
	}
	return res.Counters.RelationshipsCreated, nil
}

func (s *CypherStore) LinkCharacter(ctx context.Context, name string, sceneIDs []string) (int, error) {
	res, err := s.run(ctx, "link character", driver.LinkCharacterQuery, map[string]interface{}{
		"char_name": name,
		"scene_ids": sceneIDs,
	})
	if err != nil {
		return 0, err
	}
	return firstCount(res, "links_created"), nil
}

func (s *CypherStore) EmptySceneCandidates(ctx context.Context) ([]model.MergeCandidate, error) {
	res, err := s.run(ctx, "find empty scenes", driver.FindEmptyScenesQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.MergeCandidate, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, model.MergeCandidate{
			EmptyID:    stringValue(rec, "empty_id"),
			EmptyText:  stringValue(rec, "empty_text"),
			TargetID:   stringValue(rec, "target_id"),
			TargetText: stringValue(rec, "target_text"),
			EpisodePID: stringValue(rec, "episode_pid"),
		})
	}
	return out, nil
}

func (s *CypherStore) MergeScenes(ctx context.Context, targetID, emptyID string) (bool, error) {
	res, err := s.run(ctx, "merge scenes", driver.MergeScenesQuery, map[string]interface{}{
		"target_id": targetID,
		"empty_id":  emptyID,
	})
	if err != nil {
		return false, err
	}
	return firstCount(res, "merged") > 0, nil
}

func (s *CypherStore) SingleSceneEpisodes(ctx context.Context, since time.Time) ([]string, error) {
	res, err := s.run(ctx, "find single-scene episodes", driver.FindSingleSceneEpisodesQuery, map[string]interface{}{
		"since": model.FormatDate(since),
	})
	if err != nil {
		return nil, err
	}
	pids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		pids = append(pids, stringValue(rec, "pid"))
	}
	return pids, nil
}

func (s *CypherStore) EpisodeByDate(ctx context.Context, date time.Time) (*model.EpisodeView, error) {
	res, err := s.run(ctx, "episode by date", driver.GetEpisodeByDateQuery, map[string]interface{}{
		"date": model.FormatDate(date),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	rec := res.Records[0]
	view := &model.EpisodeView{
		PID:      stringValue(rec, "pid"),
		Date:     stringValue(rec, "date"),
		Synopsis: stringValue(rec, "synopsis"),
		Scenes:   []model.SceneView{},
	}
	raw, _ := rec.Get("scenes")
	list, _ := raw.([]interface{})
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		text, _ := m["text"].(string)
		view.Scenes = append(view.Scenes, model.SceneView{
			SceneID:    id,
			Text:       text,
			Characters: toStrings(m["characters"]),
		})
	}
	return view, nil
}

func (s *CypherStore) CharacterTimeline(ctx context.Context, name string) ([]model.SceneView, error) {
	res, err := s.run(ctx, "character timeline", driver.GetCharacterTimelineQuery, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	out := make([]model.SceneView, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, model.SceneView{
			SceneID:    stringValue(rec, "id"),
			EpisodePID: stringValue(rec, "pid"),
			Date:       stringValue(rec, "date"),
			Text:       stringValue(rec, "text"),
			Characters: stringList(rec, "characters"),
		})
	}
	return out, nil
}

func (s *CypherStore) IsEmpty(ctx context.Context) (bool, error) {
	res, err := s.run(ctx, "check empty", driver.CheckEmptyQuery, nil)
	if err != nil {
		return false, err
	}
	return len(res.Records) == 0, nil
}

// ApplyStatements runs each statement on its own; the first failure stops.
func (s *CypherStore) ApplyStatements(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.run(ctx, fmt.Sprintf("setup statement %d", i+1), stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *CypherStore) BuildIndices(ctx context.Context) error {
	return s.Driver.BuildIndices(ctx)
}

func (s *CypherStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func stringList(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	return toStrings(v)
}

func toStrings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// dateValue reads an optional date returned as a string or a driver date.
func dateValue(rec *neo4j.Record, key string) (*time.Time, error) {
	v, _ := rec.Get(key)
	var t time.Time
	switch d := v.(type) {
	case nil:
		return nil, nil
	case string:
		if d == "" {
			return nil, nil
		}
		parsed, err := model.ParseDate(d)
		if err != nil {
			return nil, err
		}
		t = parsed
	case neo4j.Date:
		t = model.Day(d.Time())
	case time.Time:
		t = model.Day(d)
	default:
		return nil, fmt.Errorf("%s: unexpected date type %T", key, v)
	}
	return &t, nil
}

func firstCount(res *driver.Result, key string) int {
	if res == nil || len(res.Records) == 0 {
		return 0
	}
	return intValue(res.Records[0], key)
}
