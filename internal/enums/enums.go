package enums

// MuscleGroups are the values a muscle group tag can take.
var MuscleGroups = []string{
	"chest",
	"back",
	"shoulders",
	"biceps",
	"triceps",
	"forearms",
	"core",
	"glutes",
	"quads",
	"hamstrings",
	"calves",
}

// TagRoles say whether a muscle group is the prime mover of an
// exercise or assists it.
var TagRoles = []string{
	"primary",
	"secondary",
}

func ValidMuscleGroup(mg string) bool {
	for _, known := range MuscleGroups {
		if mg == known {
			return true
		}
	}
	return false
}

func ValidTagRole(role string) bool {
	for _, known := range TagRoles {
		if role == known {
			return true
		}
	}
	return false
}
