package convo

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	standaloneRatingRegex = regexp.MustCompile(`\b([1-5])\b`)
	starsRatingRegex      = regexp.MustCompile(`(\d+)\s*estrella`)
)

const (
	reviewNoBusinessReply = "No encontré el negocio que mencionas. ¿Puedes ser más específico?"
	reviewSavedErrorReply = "No pude guardar tu reseña. ¿Puedes intentar de nuevo?"
	reviewPanicReply      = "Hubo un error procesando tu reseña. Intenta de nuevo."
)

// HandleReview runs the stateless two-step review heuristic over a single
// message: find the business by free text, extract a 1-5 rating, store the
// review unapproved. Each inbound message is evaluated from scratch.
func (r *Resolver) HandleReview(ctx context.Context, message, customerPhone, customerName string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("review intake panicked", "panic", rec)
			reply = reviewPanicReply
		}
	}()

	var biz *businessMatch
	for _, word := range reviewCandidateWords(message) {
		matches := r.dir.SearchBusinesses(ctx, word, "", 1)
		if len(matches) > 0 {
			biz = &businessMatch{ID: matches[0].ID, Nombre: matches[0].Nombre}
			break
		}
	}
	if biz == nil {
		return reviewNoBusinessReply
	}

	rating, ok := extractRating(message)
	if !ok {
		return fmt.Sprintf("¡Perfecto! Quieres calificar **%s**. ¿Cuántas estrellas le das? (1-5)", biz.Nombre)
	}

	rev := r.dir.CreateReview(ctx, biz.ID, customerPhone, rating, message, customerName)
	if rev == nil {
		return reviewSavedErrorReply
	}
	return fmt.Sprintf("¡Maunifik! Tu reseña de **%d estrellas** para **%s** ha sido recibida. ¡Será revisada pronto! ¡Gracias por tu opinión, ve coco!", rating, biz.Nombre)
}

type businessMatch struct {
	ID     string
	Nombre string
}

// reviewIntakeWords are the phrasings that actually submit a review. Other
// review-flavored messages (comments, general experiences) go through the
// normal context + LLM path instead.
var reviewIntakeWords = []string{"calificar", "reseña", "opinión"}

// wantsReviewIntake reports whether a review-intent message should enter the
// intake flow rather than receive an LLM reply.
func wantsReviewIntake(message string) bool {
	normalized := normalize(message)
	for _, w := range reviewIntakeWords {
		if strings.Contains(normalized, w) {
			return true
		}
	}
	return false
}

// reviewStopwords are common review verbs and fillers that would otherwise
// produce spurious business matches during the word scan.
var reviewStopwords = map[string]bool{
	"quiero": true, "calificar": true, "calificación": true, "reseña": true,
	"estrella": true, "estrellas": true, "opinión": true, "comentario": true,
	"darle": true, "dejar": true, "sobre": true, "para": true,
}

// reviewCandidateWords returns the words worth trying as business names.
// Shorter names than the general significant-word cutoff are allowed here so
// short business names still resolve.
func reviewCandidateWords(message string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(message)) {
		w = strings.Trim(w, ".,;:!?¿¡\"'")
		if len([]rune(w)) < 4 || reviewStopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// extractRating finds the rating in a message: the first standalone digit 1-5
// wins, otherwise an explicit "N estrella(s)" phrase.
func extractRating(message string) (int, bool) {
	if m := standaloneRatingRegex.FindStringSubmatch(message); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	if m := starsRatingRegex.FindStringSubmatch(normalize(message)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}
