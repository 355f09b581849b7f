package driver

var SchemaQueries = []string{
	`CREATE CONSTRAINT episode_pid IF NOT EXISTS FOR (e:Episode) REQUIRE e.pid IS UNIQUE`,
	`CREATE CONSTRAINT scene_id IF NOT EXISTS FOR (s:Scene) REQUIRE s.id IS UNIQUE`,
	`CREATE CONSTRAINT character_name IF NOT EXISTS FOR (c:Character) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT location_name IF NOT EXISTS FOR (l:Location) REQUIRE l.name IS UNIQUE`,
	`CREATE INDEX episode_date IF NOT EXISTS FOR (e:Episode) ON (e.date)`,
}

const (
	CheckEmptyQuery = `MATCH (n) RETURN true AS found LIMIT 1`

	// Episode properties are first-write-wins; scene text is overwritten.
	UpsertEpisodesQuery = `
		UNWIND $batch AS ep
		MERGE (e:Episode {pid: ep.pid})
		ON CREATE SET e.date = date(ep.date),
			e.synopsis = ep.synopsis
		WITH e, ep
		UNWIND ep.scenes AS scene_data
		MERGE (s:Scene {id: scene_data.sid})
		SET s.order = scene_data.index,
			s.text = scene_data.text
		MERGE (s)-[:PART_OF]->(e)
	`

	EpisodeDigestsQuery = `
		MATCH (e:Episode)
		OPTIONAL MATCH (s:Scene)-[:PART_OF]->(e)
		WITH e, s ORDER BY s.id
		WITH e, collect(s.text) AS texts
		RETURN e.pid AS pid, toString(e.date) AS date, e.synopsis AS synopsis, texts
		ORDER BY pid
	`

	DeleteEpisodesQuery = `
		MATCH (e:Episode)
		WHERE e.pid IN $pids
		OPTIONAL MATCH (s:Scene)-[:PART_OF]->(e)
		DETACH DELETE s, e
		RETURN count(DISTINCT e) AS count
	`

	SetEpisodeDatesQuery = `
		UNWIND $changes AS ch
		MATCH (e:Episode {pid: ch.pid})
		SET e.date = date(ch.date)
		RETURN count(e) AS count
	`

	GetCharactersQuery = `
		MATCH (c:Character)
		RETURN c.name AS name,
			coalesce(c.aliases, []) AS aliases,
			toString(c.dob) AS dob,
			toString(c.dod) AS dod,
			toString(c.first_appearance) AS first_appearance,
			toString(c.last_appearance) AS last_appearance,
			coalesce(c.keywords, []) AS keywords
	`

	GetRelationsQuery = `
		MATCH (a:Character)-[r:SPOUSE|ROMANTIC_RELATIONSHIP|CHILD_OF|FRIEND_OF]->(b:Character)
		RETURN type(r) AS kind, a.name AS source, b.name AS target
	`

	GetResidencesQuery = `
		MATCH (c:Character)-[r:LIVES_AT|WORKS_AT]->(l:Location)
		RETURN type(r) AS kind, c.name AS character, l.name AS location,
			toString(r.from) AS valid_from, toString(r.to) AS valid_to
	`

	GetScopedScenesQuery = `
		MATCH (s:Scene)-[:PART_OF]->(e:Episode)
		WHERE $pids IS NULL OR e.pid IN $pids
		RETURN e.pid AS pid, toString(e.date) AS date, e.synopsis AS synopsis,
			s.id AS id, s.order AS scene_order, s.text AS text
	`

	GetScopedAppearancesQuery = `
		MATCH (c:Character)-[:APPEARS_IN]->(s:Scene)-[:PART_OF]->(e:Episode)
		WHERE $pids IS NULL OR e.pid IN $pids
		RETURN c.name AS character, s.id AS scene_id
	`

	SaveAppearancesQuery = `
		UNWIND $rows AS row
		MATCH (c:Character {name: row.character})
		MATCH (s:Scene {id: row.scene_id})
		MERGE (c)-[:APPEARS_IN]->(s)
	`

	LinkCharacterQuery = `
		MATCH (c:Character {name: $char_name})
		UNWIND $scene_ids AS s_id
		MATCH (s:Scene {id: s_id})
		MERGE (c)-[r:APPEARS_IN]->(s)
		RETURN count(r) AS links_created
	`

	FindEmptyScenesQuery = `
		MATCH (e:Episode)<-[:PART_OF]-(empty:Scene)
		WHERE NOT (empty)<-[:APPEARS_IN]-(:Character)
		MATCH (target:Scene)-[:PART_OF]->(e)
		WHERE target.order = empty.order - 1
		RETURN empty.id AS empty_id, empty.text AS empty_text,
			target.id AS target_id, target.text AS target_text,
			e.pid AS episode_pid
		ORDER BY empty.id ASC
	`

	MergeScenesQuery = `
		MATCH (target:Scene {id: $target_id})
		MATCH (empty:Scene {id: $empty_id})
		SET target.text = target.text + " " + empty.text
		DETACH DELETE empty
		RETURN count(target) AS merged
	`

	FindSingleSceneEpisodesQuery = `
		MATCH (s:Scene)-[:PART_OF]->(e:Episode)
		WHERE e.date >= date($since)
		WITH e, count(s) AS scene_count
		WHERE scene_count = 1
		RETURN e.pid AS pid
		ORDER BY pid
	`

	GetEpisodeByDateQuery = `
		MATCH (e:Episode {date: date($date)})
		OPTIONAL MATCH (s:Scene)-[:PART_OF]->(e)
		OPTIONAL MATCH (c:Character)-[:APPEARS_IN]->(s)
		WITH e, s, collect(DISTINCT c.name) AS characters
		ORDER BY e.pid, s.id
		WITH e, collect(CASE WHEN s IS NULL THEN NULL
			ELSE {id: s.id, text: s.text, characters: characters} END) AS scenes
		RETURN e.pid AS pid, toString(e.date) AS date, e.synopsis AS synopsis, scenes
		ORDER BY pid
		LIMIT 1
	`

	GetCharacterTimelineQuery = `
		MATCH (c:Character {name: $name})-[:APPEARS_IN]->(s:Scene)-[:PART_OF]->(e:Episode)
		OPTIONAL MATCH (other:Character)-[:APPEARS_IN]->(s)
		WITH e, s, collect(DISTINCT other.name) AS characters
		RETURN e.pid AS pid, toString(e.date) AS date, s.id AS id, s.text AS text, characters
		ORDER BY e.date DESC, s.id ASC
	`
)
