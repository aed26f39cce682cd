// Package moderation classifies short free-text comments for sentiment and
// appropriateness using fixed word lists, and orders reviews for display.
package moderation

import (
	"cmp"
	"slices"
	"strings"
)

// Sentiment is the polarity assigned to a text.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Verdict is the classification of one text. It is derived on demand and
// never stored.
type Verdict struct {
	IsAppropriate bool      `json:"isAppropriate"`
	Sentiment     Sentiment `json:"sentiment"`
	Confidence    float64   `json:"confidence"`
}

const (
	flaggedConfidence = 0.9
	neutralConfidence = 0.5
	maxConfidence     = 0.9
	minConfidence     = 0.1
	// Share of matching tokens is multiplied by this before capping.
	confidenceScale = 3
	// Negative verdicts at or above this confidence are withheld.
	suppressThreshold = 0.6
)

var positiveWords = wordSet(
	"excellent", "amazing", "great", "fantastic", "wonderful", "awesome", "perfect",
	"outstanding", "brilliant", "superb", "incredible", "helpful", "friendly",
	"professional", "skilled", "knowledgeable", "patient", "reliable", "efficient",
	"creative", "innovative", "talented", "dedicated", "thorough", "responsive",
	"good", "nice", "pleased", "satisfied", "happy", "impressed", "recommend",
)

var negativeWords = wordSet(
	"terrible", "awful", "horrible", "bad", "poor", "disappointing", "frustrating",
	"annoying", "useless", "worthless", "incompetent", "unprofessional", "rude",
	"slow", "late", "unreliable", "difficult", "problematic", "issues", "problems",
	"failed", "failure", "wrong", "mistake", "error", "waste", "regret",
)

// flaggedTerms match anywhere in the text, including inside longer words.
var flaggedTerms = []string{
	// profanity and insults
	"damn", "hell", "crap", "stupid", "idiot", "moron", "fool", "jerk", "loser",
	"hate", "disgusting", "pathetic", "ridiculous", "absurd", "crazy", "insane",
	// personal attacks
	"ugly", "fat", "dumb", "worthless", "failure", "reject", "scam", "fraud",
	"cheat", "liar", "dishonest", "criminal", "thief", "steal", "stolen",
	// discriminatory language markers
	"discriminate", "racist", "sexist", "bigot", "prejudice", "bias", "unfair",
	// threats
	"threat", "threaten", "harm", "hurt", "attack", "violence", "dangerous",
	"revenge", "payback", "destroy", "ruin", "kill", "die", "death",
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// AnalyzeText scores text for sentiment and decides whether it is fit to show.
func AnalyzeText(text string) Verdict {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return Verdict{IsAppropriate: false, Sentiment: Neutral, Confidence: 0}
	}

	for _, term := range flaggedTerms {
		if strings.Contains(clean, term) {
			return Verdict{IsAppropriate: false, Sentiment: Negative, Confidence: flaggedConfidence}
		}
	}

	tokens := strings.Fields(clean)
	var positive, negative int
	for _, token := range tokens {
		if _, ok := positiveWords[token]; ok {
			positive++
		} else if _, ok := negativeWords[token]; ok {
			negative++
		}
	}

	sentiment := Neutral
	confidence := neutralConfidence
	switch {
	case positive > negative:
		sentiment = Positive
		confidence = scaledConfidence(positive, len(tokens))
	case negative > positive:
		sentiment = Negative
		confidence = scaledConfidence(negative, len(tokens))
	}

	return Verdict{
		IsAppropriate: sentiment != Negative || confidence < suppressThreshold,
		Sentiment:     sentiment,
		Confidence:    max(minConfidence, confidence),
	}
}

func scaledConfidence(matches, tokens int) float64 {
	return min(maxConfidence, float64(matches)/float64(tokens)*confidenceScale)
}

// Reviewable is anything that carries a comment and a numeric rating.
type Reviewable interface {
	ReviewComment() string
	ReviewRating() int
}

// Ranked pairs an item with the verdict computed for its comment.
type Ranked[T Reviewable] struct {
	Item    T
	Verdict Verdict
}

// FilterAndRank classifies every item, drops the inappropriate ones and
// orders the rest: positive sentiment first, then rating descending.
// Items that tie on both keys keep their input order.
func FilterAndRank[T Reviewable](items []T) []Ranked[T] {
	ranked := make([]Ranked[T], 0, len(items))
	for _, item := range items {
		verdict := AnalyzeText(item.ReviewComment())
		if !verdict.IsAppropriate {
			continue
		}
		ranked = append(ranked, Ranked[T]{Item: item, Verdict: verdict})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked[T]) int {
		aPositive, bPositive := a.Verdict.Sentiment == Positive, b.Verdict.Sentiment == Positive
		if aPositive != bPositive {
			if aPositive {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Item.ReviewRating(), a.Item.ReviewRating())
	})
	return ranked
}
