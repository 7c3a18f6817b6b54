package absa

import (
	"fmt"
	"strings"
)

const instructionsTemplate = `You are an expert in Aspect-Based Sentiment Analysis (ABSA). Your task is to analyze teacher reviews and extract aspect-specific information for the following predefined categories:

%s

Instructions:
1. For each aspect category explicitly or implicitly mentioned in the review:
   - Extract the exact aspect term(s) or phrase(s) from the review text. Only include substrings that appear verbatim in the review.
   - If multiple terms or phrases are found, return them as a list.
   - If no relevant phrase is found for a category, return "Aspect Terms": null and "Polarity": null.
2. Determine the sentiment polarity toward each mentioned aspect: one of {Positive, Negative, Neutral}.
3. Return the output in the following JSON format without any explanation or commentary:

{
  "%s": {
    "Aspect Terms": ["..."],
    "Polarity": "..."
  },
  ...
}`

// BuildInstructions returns the system prompt for the given aspects.
func BuildInstructions(aspects []string) string {
	lines := make([]string, len(aspects))
	for i, a := range aspects {
		lines[i] = "- " + a
	}
	first := "Aspect Category"
	if len(aspects) > 0 {
		first = aspects[0]
	}
	return fmt.Sprintf(instructionsTemplate, strings.Join(lines, "\n"), first)
}
