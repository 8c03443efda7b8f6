package catalog

// The event log is mapped through a JSONPaths file because its keys are camel
// cased. Song records carry the column names as keys.
var loadTemplates = []template{
	{
		name:  "copy_" + StagingEventsTable,
		kind:  KindLoad,
		table: StagingEventsTable,
		args:  []string{ArgLogData, ArgIAMRole, ArgLogJSONPath, ArgRegion},
		text: `COPY {tableName} ({stagingEventColumns})
FROM {logData}
IAM_ROLE {iamRole}
FORMAT AS JSON {logJSONPath}
TIMEFORMAT 'epochmillisecs'
BLANKSASNULL EMPTYASNULL
REGION {region}`,
	},
	{
		name:  "copy_" + StagingSongsTable,
		kind:  KindLoad,
		table: StagingSongsTable,
		args:  []string{ArgSongData, ArgIAMRole, ArgRegion},
		text: `COPY {tableName}
FROM {songData}
IAM_ROLE {iamRole}
FORMAT AS JSON 'auto'
TRUNCATECOLUMNS BLANKSASNULL EMPTYASNULL
REGION {region}`,
	},
}
