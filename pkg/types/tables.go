package types

// Standard collection names of the local store.
const (
	CollectionUsers            = "users"
	CollectionModules          = "modules"
	CollectionTasks            = "tasks"
	CollectionNotes            = "notes"
	CollectionStudyLogs        = "studyLogs"
	CollectionFlashcardDecks   = "flashcardDecks"
	CollectionFlashcards       = "flashcards"
	CollectionPomodoroSessions = "pomodoroSessions"
	CollectionCalendarEvents   = "calendarEvents"
	CollectionConversations    = "conversations"
)

// SettingsKey is the top-level key of the settings object in the store file.
const SettingsKey = "settings"

// StandardCollections lists every collection the empty schema contains, in
// the order they are written.
var StandardCollections = []string{
	CollectionUsers,
	CollectionModules,
	CollectionTasks,
	CollectionNotes,
	CollectionStudyLogs,
	CollectionFlashcardDecks,
	CollectionFlashcards,
	CollectionPomodoroSessions,
	CollectionCalendarEvents,
	CollectionConversations,
}

// remoteTableNames holds the collections whose remote table name differs
// from the collection name.
var remoteTableNames = map[string]string{
	CollectionStudyLogs:        "study_logs",
	CollectionFlashcardDecks:   "flashcard_decks",
	CollectionPomodoroSessions: "pomodoro_sessions",
	CollectionCalendarEvents:   "calendar_events",
}

var standardSet = func() map[string]bool {
	m := make(map[string]bool, len(StandardCollections))
	for _, c := range StandardCollections {
		m[c] = true
	}
	return m
}()

// IsStandardCollection reports whether name is part of the empty schema.
func IsStandardCollection(name string) bool {
	return standardSet[name]
}

// RemoteTable returns the remote table name for a collection.
func RemoteTable(collection string) string {
	if t, ok := remoteTableNames[collection]; ok {
		return t
	}
	return collection
}
