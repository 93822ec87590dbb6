package actors

// Actor classes recognized by environments. A player participates in the game,
// a teacher supervises a player and may override its moves, an observer only
// watches.
const (
	PlayerActorClass   = "player"
	TeacherActorClass  = "teacher"
	ObserverActorClass = "observer"
)

// WebActorName is the actor name reserved for the human participant driving a
// trial through the web gateway.
const WebActorName = "web_actor"
