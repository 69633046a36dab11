package generator

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/highscore/internal/curriculum"
)

const systemPrompt = "You are a math education expert who creates high-quality assessment questions."

// QuestionsPerTopic is the number of questions requested for each path.
const QuestionsPerTopic = 2

// BuildPrompt renders the per-path instruction sent to the generation service.
// The reply format is a convention for readers; replies are stored verbatim.
func BuildPrompt(baseQ1, baseQ2 string, path curriculum.Path, difficulty Difficulty) string {
	var b strings.Builder

	b.WriteString("You are a math education expert. Given the following base questions:\n\n")
	fmt.Fprintf(&b, "1. %s\n", baseQ1)
	fmt.Fprintf(&b, "2. %s\n\n", baseQ2)
	fmt.Fprintf(&b, "Create %d new math questions similar in style and difficulty, using the following format:\n\n", QuestionsPerTopic)

	fmt.Fprintf(&b, "title: Assessment title for %s\n", path.Topic)
	fmt.Fprintf(&b, "description: assessment description for %s\n", path.Topic)
	b.WriteString("question: Write your question here\n")
	b.WriteString("instruction: Write instruction here\n")
	fmt.Fprintf(&b, "difficulty: %s\n", difficulty)
	b.WriteString("order: Question number\n")
	for _, letter := range []string{"A", "B", "C", "D", "E"} {
		fmt.Fprintf(&b, "option %s: ...\n", letter)
	}
	b.WriteString("correct_answer: A/B/C/D/E\n")
	b.WriteString("explanation: Write your question explanation here\n")
	fmt.Fprintf(&b, "subject: %s\n", path.Subject)
	fmt.Fprintf(&b, "unit: %s\n", path.Unit)
	fmt.Fprintf(&b, "topic: %s\n", path.Topic)
	b.WriteString("plusmarks: 1\n\n")

	fmt.Fprintf(&b, "Make sure the questions are similar in structure and difficulty to the base questions, and are relevant to the topic: %s.\n", path.Topic)
	fmt.Fprintf(&b, "Generate exactly %d questions for this topic.\n", QuestionsPerTopic)

	return b.String()
}
