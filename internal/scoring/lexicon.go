package scoring

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mwhitton/chattersignal/internal/models"
	"github.com/mwhitton/chattersignal/pkg/textnorm"
)

// LexiconSource identifies signals produced by the lexicon scorer.
const LexiconSource = "lexicon"

// positiveLexicon maps positive words to their sentiment weight.
var positiveLexicon = map[string]float64{
	"love": 1.0, "adore": 1.0, "amazing": 0.9, "perfect": 0.9,
	"beautiful": 0.8, "gorgeous": 0.8, "stunning": 0.8, "incredible": 0.9,
	"great": 0.7, "good": 0.5, "like": 0.4, "best": 0.8, "favorite": 0.8,
	"talented": 0.7, "brilliant": 0.8, "iconic": 0.7, "queen": 0.6,
	"king": 0.6, "legend": 0.7, "masterpiece": 0.9, "slay": 0.7,
	"stan": 0.6, "obsessed": 0.6, "awesome": 0.8, "wonderful": 0.8,
	"sweet": 0.5, "cute": 0.5, "proud": 0.6, "deserve": 0.4,
	"underrated": 0.5, "flawless": 0.8,
}

// negativeLexicon maps negative words to their sentiment weight.
var negativeLexicon = map[string]float64{
	"hate": -1.0, "despise": -1.0, "awful": -0.9, "terrible": -0.9,
	"horrible": -0.9, "worst": -0.9, "disgusting": -0.8, "gross": -0.7,
	"annoying": -0.6, "cringe": -0.6, "fake": -0.6, "liar": -0.8,
	"toxic": -0.7, "overrated": -0.6, "trash": -0.8, "garbage": -0.8,
	"ugly": -0.7, "boring": -0.5, "bad": -0.5, "dislike": -0.5,
	"pathetic": -0.7, "shady": -0.5, "manipulative": -0.7, "evil": -0.8,
	"flop": -0.6, "mid": -0.4, "insufferable": -0.8, "embarrassing": -0.6,
	"disappointed": -0.5, "disappointing": -0.5,
}

// negationWords flip the polarity of a sentiment word they precede.
var negationWords = map[string]bool{
	"not": true, "never": true, "no": true, "hardly": true, "barely": true,
	"isnt": true, "isn't": true, "aint": true, "ain't": true,
	"dont": true, "don't": true, "doesnt": true, "doesn't": true,
	"didnt": true, "didn't": true, "cant": true, "can't": true,
	"wasnt": true, "wasn't": true, "werent": true, "weren't": true,
	"wont": true, "won't": true, "nobody": true,
}

// sarcasmMarkers are cues conventionally used ironically. Combined with a
// superficially positive reading they flip the sentiment negative.
var sarcasmMarkers = []string{
	"🙄", "🤡", "💀", "🙃", "😒", "/s", "yeah right", "sure jan",
	"oh great", "oh wow", "totally believable", "how convenient",
}

// empathyPhrases mark sympathy toward whoever follows them. "I feel bad for
// X" is positive toward X (negative toward the situation), so these clauses
// bypass plain word scoring.
var empathyPhrases = []string{
	"feel bad for", "feel so bad for", "feel sorry for", "feel terrible for",
	"my heart breaks for", "my heart goes out to", "poor", "praying for",
	"thoughts are with",
}

// rhetoricalMarkers let a question keep its polarity instead of defaulting
// to neutral.
var rhetoricalMarkers = []string{
	"obviously", "of course", "everyone knows", "who even", "why do we",
	"can we just", "right?",
}

// interrogativeOpeners start a genuine question.
var interrogativeOpeners = []string{
	"is ", "is it", "are ", "was ", "were ", "do ", "does ", "did ",
	"can ", "could ", "would ", "will ", "has ", "have ", "anyone know",
	"what ", "when ", "where ", "who ", "why ", "how ",
}

// toxicWords feed the toxicity score.
var toxicWords = []string{
	"idiot", "stupid", "moron", "dumb", "loser", "kill yourself", "kys",
	"shut up", "die", "trash human", "scum", "pig", "witch", "rot",
}

// contrastSplitters divide a sentence into opposing clauses so sentiment is
// attributed per clause, not per comment.
var contrastSplitters = []string{" but ", " however ", " yet ", " whereas ", " meanwhile "}

// emotionLexicons map dominant-emotion labels to their cue words.
var emotionLexicons = map[string][]string{
	"joy":      {"love", "happy", "excited", "thrilled", "joy", "yay", "amazing", "best day"},
	"anger":    {"hate", "furious", "angry", "rage", "disgusting", "outraged", "sick of"},
	"sadness":  {"sad", "crying", "heartbroken", "miss", "tears", "devastated", "feel bad"},
	"fear":     {"scared", "afraid", "worried", "terrified", "anxious", "nervous"},
	"surprise": {"shocked", "can't believe", "cant believe", "wow", "no way", "unexpected"},
}

// topicLexicons map storyline tags to their cue words.
var topicLexicons = map[string][]string{
	"legal":        {"lawsuit", "sue", "suing", "court", "trial", "deposition", "legal", "subpoena"},
	"film":         {"movie", "film", "premiere", "box office", "trailer", "sequel", "casting"},
	"relationship": {"divorce", "dating", "married", "breakup", "couple", "wedding", "engaged"},
	"publicity":    {"pr", "publicist", "smear", "press tour", "interview", "damage control"},
}

// LexiconScorer is the fast, free, deterministic scoring strategy. It
// attributes sentiment clause by clause so a comment can praise one entity
// and drag another.
type LexiconScorer struct {
	logger *slog.Logger
}

// NewLexiconScorer creates the heuristic scorer.
func NewLexiconScorer(logger *slog.Logger) *LexiconScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LexiconScorer{logger: logger}
}

// Source identifies the strategy for signal provenance.
func (s *LexiconScorer) Source() string { return LexiconSource }

// Score computes a deterministic ScoreResult from lexicon heuristics.
func (s *LexiconScorer) Score(_ context.Context, req ScoreRequest) (*ScoreResult, error) {
	text := strings.ToLower(req.Text)

	result := &ScoreResult{
		EntitySentiment: make(map[string]float64),
		EntityStance:    make(map[string]string),
		Toxicity:        toxicityScore(text),
		Topics:          topicTags(text),
		Emotion:         dominantEmotion(text),
		Discoveries:     s.discoverNames(req),
	}
	for _, c := range req.Candidates {
		result.EntitySentiment[c.EntityID] = 0.0
		result.EntityStance[c.EntityID] = StanceNeutral
	}

	// A genuine question is neutral about everything it asks.
	if isQuestion(text) && !isRhetorical(text) {
		result.Confidence = 0.85
		s.logDone(req, result, 0)
		return result, nil
	}

	clauses := splitClauses(text)
	hits := 0
	var clauseScores []float64
	for _, clause := range clauses {
		score, n := scoreClause(clause)
		hits += n
		// Empathy reads positive toward its subject, negative toward the
		// situation the comment is reacting to.
		overallScore := score
		if hasEmpathy(clause) {
			overallScore = -0.3
		}
		clauseScores = append(clauseScores, overallScore)

		for _, c := range req.Candidates {
			if !mentionsName(clause, c.Name) {
				continue
			}
			if n == 0 && !hasEmpathy(clause) {
				continue
			}
			prev := result.EntitySentiment[c.EntityID]
			result.EntitySentiment[c.EntityID] = clamp(prev+score, -1, 1)
		}
	}

	var overall float64
	scored := 0
	for _, cs := range clauseScores {
		if cs != 0 {
			overall += cs
			scored++
		}
	}
	if scored > 0 {
		overall /= float64(scored)
	}
	result.OverallSentiment = clamp(overall, -1, 1)

	// Sarcasm flips an apparently positive surface reading. High-engagement
	// comments carry the marker further: they are the ones that spread.
	if hasSarcasmMarker(text) && result.OverallSentiment > 0 {
		result.Sarcasm = true
		result.OverallSentiment = -result.OverallSentiment
		for id, v := range result.EntitySentiment {
			if v > 0 {
				result.EntitySentiment[id] = -v
			}
		}
	}

	for _, c := range req.Candidates {
		result.EntityStance[c.EntityID] = stanceFor(result.EntitySentiment[c.EntityID])
	}

	switch {
	case hits == 0:
		result.Confidence = 0.3
	default:
		result.Confidence = clamp(0.55+0.1*float64(hits), 0, 0.95)
	}
	if result.Sarcasm && req.LikeCount >= 100 {
		result.Confidence = clamp(result.Confidence+0.05, 0, 0.95)
	}

	s.logDone(req, result, hits)
	return result, nil
}

func (s *LexiconScorer) logDone(req ScoreRequest, result *ScoreResult, hits int) {
	s.logger.Debug("lexicon scored comment",
		"overall", result.OverallSentiment,
		"entities", len(result.EntitySentiment),
		"hits", hits,
		"sarcasm", result.Sarcasm,
		"text", textnorm.Truncate(req.Text, 60))
}

// splitClauses breaks text into sentences and then on contrast conjunctions.
func splitClauses(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	})
	var clauses []string
	for _, sent := range sentences {
		parts := []string{sent}
		for _, splitter := range contrastSplitters {
			var next []string
			for _, p := range parts {
				next = append(next, strings.Split(p, splitter)...)
			}
			parts = next
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				clauses = append(clauses, p)
			}
		}
	}
	return clauses
}

// scoreClause returns the mean lexicon weight of the clause and the number
// of sentiment hits. Empathy clauses read positive toward their subject
// regardless of the gloomy words they contain.
func scoreClause(clause string) (float64, int) {
	if hasEmpathy(clause) {
		return 0.5, 1
	}

	tokens := tokenize(clause)
	total := 0.0
	hits := 0
	for i, tok := range tokens {
		w, ok := positiveLexicon[tok]
		if !ok {
			w, ok = negativeLexicon[tok]
		}
		if !ok {
			continue
		}
		if negatedAt(tokens, i) {
			w = -w
		}
		total += w
		hits++
	}
	if hits == 0 {
		return 0, 0
	}
	return clamp(total/float64(hits), -1, 1), hits
}

// negatedAt reports whether any of the three tokens before position i is a
// negation word.
func negatedAt(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-3; j-- {
		if negationWords[tokens[j]] {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func hasEmpathy(clause string) bool {
	for _, p := range empathyPhrases {
		if strings.Contains(clause, p) {
			return true
		}
	}
	return false
}

func hasSarcasmMarker(text string) bool {
	for _, m := range sarcasmMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	for _, opener := range interrogativeOpeners {
		if strings.HasPrefix(trimmed, opener) {
			return true
		}
	}
	return false
}

func isRhetorical(text string) bool {
	for _, m := range rhetoricalMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func stanceFor(sentiment float64) string {
	switch {
	case sentiment > 0.2:
		return StanceSupport
	case sentiment < -0.2:
		return StanceOppose
	default:
		return StanceNeutral
	}
}

func toxicityScore(text string) float64 {
	hits := 0
	for _, w := range toxicWords {
		if strings.Contains(text, w) {
			hits++
		}
	}
	return clamp(float64(hits)*0.35, 0, 1)
}

func dominantEmotion(text string) string {
	best, bestHits := "", 0
	for emotion, cues := range emotionLexicons {
		hits := 0
		for _, cue := range cues {
			if strings.Contains(text, cue) {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && emotion < best) {
			best, bestHits = emotion, hits
		}
	}
	if bestHits == 0 {
		return ""
	}
	return best
}

func topicTags(text string) []string {
	var tags []string
	for topic, cues := range topicLexicons {
		for _, cue := range cues {
			if containsWord(text, cue) {
				tags = append(tags, topic)
				break
			}
		}
	}
	for _, tok := range strings.Fields(text) {
		if strings.HasPrefix(tok, "#") && len(tok) > 1 {
			tags = append(tags, strings.TrimPrefix(strings.TrimRight(tok, ".,!?"), "#"))
		}
	}
	return tags
}

// mentionsName reports whether the clause names the candidate: the full
// name, or any name token of three or more runes. Comments rarely use full
// names, so "blake" in a clause must still attribute to Blake Lively.
func mentionsName(clause, name string) bool {
	name = strings.ToLower(name)
	if containsWord(clause, name) {
		return true
	}
	for _, tok := range strings.Fields(name) {
		if len([]rune(tok)) >= 3 && containsWord(clause, tok) {
			return true
		}
	}
	return false
}

// containsWord is a boundary-respecting substring check over lowercase text.
func containsWord(text, word string) bool {
	return len(wordOccurrences(text, word)) > 0
}

func wordOccurrences(text, word string) []int {
	if word == "" {
		return nil
	}
	var positions []int
	off := 0
	for {
		idx := strings.Index(text[off:], word)
		if idx < 0 {
			return positions
		}
		start := off + idx
		end := start + len(word)
		beforeOK := start == 0
		if !beforeOK {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			beforeOK = textnorm.IsWordBoundary(r)
		}
		afterOK := end >= len(text)
		if !afterOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			afterOK = textnorm.IsWordBoundary(r)
		}
		if beforeOK && afterOK {
			positions = append(positions, start)
		}
		off = start + 1
	}
}

// discoverNames scans the original-cased comment for proper-noun runs that
// are not already candidates. Single capitalized sentence-openers are
// skipped; they are usually just sentence case, not names.
func (s *LexiconScorer) discoverNames(req ScoreRequest) []DiscoveredName {
	known := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		for _, f := range strings.Fields(strings.ToLower(c.Name)) {
			known[f] = true
		}
	}

	words := strings.Fields(req.Text)
	var out []DiscoveredName
	seen := make(map[string]bool)
	i := 0
	for i < len(words) {
		if !isCapitalizedWord(words[i]) {
			i++
			continue
		}
		j := i
		var run []string
		for j < len(words) && isCapitalizedWord(words[j]) {
			run = append(run, strings.TrimFunc(words[j], unicode.IsPunct))
			j++
		}
		name := strings.Join(run, " ")
		norm := textnorm.Normalize(name)
		sentenceStart := i == 0 || strings.ContainsAny(words[i-1], ".!?")
		switch {
		case norm == "" || seen[norm] || known[strings.ToLower(run[0])]:
		case len(run) == 1 && (sentenceStart || len([]rune(run[0])) < 3 || run[0] == "I"):
		default:
			seen[norm] = true
			kind := models.EntityKindPerson
			if strings.ToUpper(name) == name && len(run) == 1 {
				kind = models.EntityKindBrand
			}
			out = append(out, DiscoveredName{Name: name, Kind: kind})
		}
		i = j
	}
	return out
}

func isCapitalizedWord(w string) bool {
	w = strings.TrimFunc(w, unicode.IsPunct)
	runes := []rune(w)
	if len(runes) == 0 {
		return false
	}
	return unicode.IsUpper(runes[0])
}
