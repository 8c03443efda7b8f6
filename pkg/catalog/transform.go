package catalog

// User attributes come from the event with the latest ts. Events without a ts
// never win. Events sharing that ts are ranked in no particular order.
const insertUsers = `INSERT INTO {tableName} (user_id, first_name, last_name, gender, level)
SELECT user_id, first_name, last_name, gender, level
FROM (
    SELECT user_id, first_name, last_name, gender, level,
        ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY ts DESC) AS row_num
    FROM {stagingEventsTable}
    WHERE user_id IS NOT NULL AND ts IS NOT NULL
) AS latest
WHERE row_num = 1`

const insertSongs = `INSERT INTO {tableName} (song_id, title, artist_id, year, duration)
SELECT DISTINCT song_id, title, artist_id, year, duration
FROM {stagingSongsTable}
WHERE song_id IS NOT NULL`

// An artist appears once per song in the catalog, possibly with a different
// location each time. The most recent song wins.
const insertArtists = `INSERT INTO {tableName} (artist_id, name, location, latitude, longitude)
SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM (
    SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude,
        ROW_NUMBER() OVER (PARTITION BY artist_id ORDER BY year DESC, song_id) AS row_num
    FROM {stagingSongsTable}
    WHERE artist_id IS NOT NULL
) AS ranked
WHERE row_num = 1`

const insertTime = `INSERT INTO {tableName} (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT ts,
    EXTRACT(hour FROM ts),
    EXTRACT(day FROM ts),
    EXTRACT(week FROM ts),
    EXTRACT(month FROM ts),
    EXTRACT(year FROM ts),
    EXTRACT(dow FROM ts)
FROM {stagingEventsTable}
WHERE ts IS NOT NULL AND page = {nextSongPage}`

// Songs are matched on title only; plays of titles missing from the catalog are dropped.
const insertSongplays = `INSERT INTO {tableName} (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT e.ts, e.user_id, e.level, s.song_id, s.artist_id, e.session_id, e.location, e.user_agent
FROM {stagingEventsTable} AS e
JOIN {stagingSongsTable} AS s ON e.song = s.title
WHERE e.page = {nextSongPage} AND e.user_id IS NOT NULL AND e.ts IS NOT NULL`

var insertTemplates = []template{
	{name: "insert_" + UsersTable, kind: KindInsert, table: UsersTable, text: insertUsers},
	{name: "insert_" + SongsTable, kind: KindInsert, table: SongsTable, text: insertSongs},
	{name: "insert_" + ArtistsTable, kind: KindInsert, table: ArtistsTable, text: insertArtists},
	{name: "insert_" + TimeTable, kind: KindInsert, table: TimeTable, text: insertTime},
	{name: "insert_" + SongplaysTable, kind: KindInsert, table: SongplaysTable, text: insertSongplays},
}
