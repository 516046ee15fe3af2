package roles

// Role is a single card in the catalog. Duplicate characters (two
// werewolves, three villagers) get distinct ids so selection can track
// each copy independently.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"displayName"`
}

// DefaultCatalog returns the full One Night role set plus the ids
// selected by default for a fresh room. Always the same catalog; callers
// may append to the returned slices freely.
func DefaultCatalog() ([]Role, []string) {
	available := []Role{
		{ID: "werewolf-1", Name: "Werewolf"},
		{ID: "werewolf-2", Name: "Werewolf"},
		{ID: "seer-1", Name: "Seer"},
		{ID: "robber-1", Name: "Robber"},
		{ID: "troublemaker-1", Name: "Troublemaker"},
		{ID: "villager-1", Name: "Villager"},
		{ID: "villager-2", Name: "Villager"},
		{ID: "villager-3", Name: "Villager"},
	}

	selected := []string{
		"werewolf-1",
		"werewolf-2",
		"seer-1",
		"robber-1",
		"troublemaker-1",
		"villager-1",
	}

	return available, selected
}
