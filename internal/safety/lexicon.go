package safety

// lexicon is a compact AFINN-style valence list (-5..+5) focused on the
// emotional vocabulary that shows up in companion conversations.
var lexicon = map[string]int{
	// Strong negative.
	"devastated": -4, "suicidal": -4, "hopeless": -4, "worthless": -4,
	"terrified": -4, "unbearable": -4, "agony": -4, "despair": -4,

	"hate": -3, "miserable": -3, "awful": -3, "terrible": -3,
	"horrible": -3, "depressed": -3, "depression": -3, "panic": -3,
	"kill": -3, "die": -3, "dead": -3, "abuse": -3, "abused": -3,
	"violence": -3, "assault": -3, "trauma": -3, "destroyed": -3,
	"desperate": -3, "worried": -3, "worry": -3, "anguish": -3,
	"grief": -3, "suffering": -3, "nightmare": -3, "furious": -3,

	"sad": -2, "angry": -2, "anxious": -2, "anxiety": -2, "afraid": -2,
	"scared": -2, "fear": -2, "hurt": -2, "pain": -2, "painful": -2,
	"lonely": -2, "alone": -2, "crying": -2, "broken": -2, "ashamed": -2,
	"guilty": -2, "helpless": -2, "useless": -2, "stressed": -2,
	"exhausted": -2, "tired": -2, "numb": -2, "empty": -2, "lost": -2,
	"trapped": -2, "failure": -2, "failed": -2, "upset": -2,
	"unhappy": -2, "danger": -2, "crisis": -2, "sick": -2,

	"bad": -1, "difficult": -1, "struggle": -1, "struggling": -1,
	"stress": -1, "cry": -1, "tension": -1, "problem": -1,
	"problems": -1, "confused": -1, "bored": -1, "annoyed": -1,
	"nervous": -1, "doubt": -1,

	// Positive.
	"okay": 1, "fine": 1, "alive": 1, "safe": 1, "rest": 1,
	"interesting": 1, "ready": 1,

	"good": 2, "better": 2, "hope": 2, "hopeful": 2, "calm": 2,
	"peaceful": 2, "comfort": 2, "comfortable": 2, "relieved": 2,
	"supported": 2, "support": 2, "strong": 2, "stronger": 2,
	"brave": 2, "proud": 2, "thank": 2, "thanks": 2, "grateful": 2,
	"relaxed": 2, "confident": 2, "cheerful": 2, "warm": 2,
	"helpful": 2, "care": 2, "kind": 2, "progress": 2,

	"happy": 3, "great": 3, "love": 3, "loved": 3, "loving": 3,
	"joy": 3, "joyful": 3, "excited": 3, "beautiful": 3, "best": 3,
	"wonderful": 3, "delighted": 3, "blessed": 3, "peace": 3,

	"amazing": 4, "awesome": 4, "fantastic": 4, "thrilled": 4,
	"overjoyed": 4, "ecstatic": 5,
}
