package catalog

const (
	StagingEventsTable = "staging_events"
	StagingSongsTable  = "staging_songs"
	SongplaysTable     = "songplays"
	UsersTable         = "users"
	SongsTable         = "songs"
	ArtistsTable       = "artists"
	TimeTable          = "time"

	// NextSongPage is the page value of an event that records a song being played.
	NextSongPage = "NextSong"
)

// StarSchemaTables lists the dimension tables followed by the fact table.
var StarSchemaTables = []string{UsersTable, SongsTable, ArtistsTable, TimeTable, SongplaysTable}

// stagingEventColumns follows the field order of the log JSONPaths file.
var stagingEventColumns = []string{
	"artist", "auth", "first_name", "gender", "item_in_session", "last_name",
	"length", "level", "location", "method", "page", "registration",
	"session_id", "song", "status", "ts", "user_agent", "user_id",
}

// tableNames are available to every template.
var tableNames = map[string]string{
	"stagingEventsTable": StagingEventsTable,
	"stagingSongsTable":  StagingSongsTable,
	"songplaysTable":     SongplaysTable,
	"usersTable":         UsersTable,
	"songsTable":         SongsTable,
	"artistsTable":       ArtistsTable,
	"timeTable":          TimeTable,
}

var dropTemplates = []template{
	dropTemplate(StagingEventsTable),
	dropTemplate(StagingSongsTable),
	dropTemplate(SongplaysTable),
	dropTemplate(UsersTable),
	dropTemplate(SongsTable),
	dropTemplate(ArtistsTable),
	dropTemplate(TimeTable),
}

func dropTemplate(table string) template {
	return template{
		name:  "drop_" + table,
		kind:  KindDrop,
		table: table,
		text:  `DROP TABLE IF EXISTS {tableName}`,
	}
}

// registration is stored raw. Which timestamp it carries is not known, so no
// transform reads it.
var createTemplates = []template{
	{
		name:  "create_" + StagingEventsTable,
		kind:  KindCreate,
		table: StagingEventsTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    event_id        BIGINT IDENTITY(0,1),
    artist          VARCHAR(512),
    auth            VARCHAR(32),
    first_name      VARCHAR(256),
    gender          CHAR(1),
    item_in_session INTEGER,
    last_name       VARCHAR(256),
    length          FLOAT8,
    level           VARCHAR(16),
    location        VARCHAR(512),
    method          VARCHAR(8),
    page            VARCHAR(64),
    registration    FLOAT8,
    session_id      INTEGER,
    song            VARCHAR(512),
    status          INTEGER,
    ts              TIMESTAMP SORTKEY,
    user_agent      VARCHAR(1024),
    user_id         INTEGER
)`,
	},
	{
		name:  "create_" + StagingSongsTable,
		kind:  KindCreate,
		table: StagingSongsTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    num_songs        INTEGER,
    artist_id        VARCHAR(32),
    artist_latitude  FLOAT8,
    artist_longitude FLOAT8,
    artist_location  VARCHAR(512),
    artist_name      VARCHAR(512),
    song_id          VARCHAR(32) SORTKEY,
    title            VARCHAR(512),
    duration         FLOAT8,
    year             SMALLINT
)`,
	},
	{
		name:  "create_" + TimeTable,
		kind:  KindCreate,
		table: TimeTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    start_time TIMESTAMP NOT NULL SORTKEY,
    hour       SMALLINT NOT NULL,
    day        SMALLINT NOT NULL,
    week       SMALLINT NOT NULL,
    month      SMALLINT NOT NULL,
    year       SMALLINT NOT NULL,
    weekday    SMALLINT NOT NULL,
    PRIMARY KEY (start_time)
) DISTSTYLE AUTO`,
	},
	{
		name:  "create_" + UsersTable,
		kind:  KindCreate,
		table: UsersTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    user_id    INTEGER NOT NULL SORTKEY,
    first_name VARCHAR(256),
    last_name  VARCHAR(256),
    gender     CHAR(1),
    level      VARCHAR(16),
    PRIMARY KEY (user_id)
) DISTSTYLE ALL`,
	},
	{
		name:  "create_" + ArtistsTable,
		kind:  KindCreate,
		table: ArtistsTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    artist_id VARCHAR(32) NOT NULL SORTKEY,
    name      VARCHAR(512),
    location  VARCHAR(512),
    latitude  FLOAT8,
    longitude FLOAT8,
    PRIMARY KEY (artist_id)
) DISTSTYLE ALL`,
	},
	{
		name:  "create_" + SongsTable,
		kind:  KindCreate,
		table: SongsTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    song_id   VARCHAR(32) NOT NULL SORTKEY,
    title     VARCHAR(512),
    artist_id VARCHAR(32) REFERENCES {artistsTable} (artist_id),
    year      SMALLINT,
    duration  FLOAT8,
    PRIMARY KEY (song_id)
) DISTSTYLE ALL`,
	},
	{
		name:  "create_" + SongplaysTable,
		kind:  KindCreate,
		table: SongplaysTable,
		text: `CREATE TABLE IF NOT EXISTS {tableName} (
    songplay_id BIGINT IDENTITY(0,1),
    start_time  TIMESTAMP NOT NULL SORTKEY REFERENCES {timeTable} (start_time),
    user_id     INTEGER NOT NULL REFERENCES {usersTable} (user_id),
    level       VARCHAR(16),
    song_id     VARCHAR(32) DISTKEY REFERENCES {songsTable} (song_id),
    artist_id   VARCHAR(32) REFERENCES {artistsTable} (artist_id),
    session_id  INTEGER,
    location    VARCHAR(512),
    user_agent  VARCHAR(1024),
    PRIMARY KEY (songplay_id)
)`,
	},
}
