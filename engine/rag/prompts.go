package rag

import (
	"fmt"

	"github.com/RNS-Forge/Collexa.AI/engine/domain"
)

// templateID names one of the prompt templates. Selection is a pure function
// of (mode, context presence) so template text and selection logic stay
// independently testable.
type templateID int

const (
	tmplDocumentGrounded templateID = iota
	tmplGeneralWithUploads
	tmplGeneralOnly
)

const documentGroundedPrompt = `You are an academic assistant for uploaded course materials.
Answer the student's question using ONLY the information in the context below.
If the context does not contain the answer, say that the uploaded documents do not cover it.
When you state a fact, cite the source it came from using the labels shown in the context.

Context:
%s

Question: %s

Answer strictly from the provided context.`

const generalWithUploadsPrompt = `You are an academic assistant.
Answer the student's question using the uploaded materials below as your dominant source
(roughly 70%% of your answer) and your general knowledge as a minor supplement (roughly 30%%).
For every claim taken from the uploads, state which uploaded source it came from using the
labels shown in the context.
Also recommend 2-3 relevant educational videos as full URLs in the form
https://www.youtube.com/watch?v=VIDEO_ID.

Uploaded context:
%s

Question: %s`

const generalOnlyPrompt = `You are an academic assistant.
Answer the student's question from your general knowledge.
Also recommend 2-3 relevant educational videos as full URLs in the form
https://www.youtube.com/watch?v=VIDEO_ID.

Question: %s`

// selectTemplate picks the template for a mode and context presence.
func selectTemplate(mode domain.Mode, hasContext bool) templateID {
	if mode == domain.ModeDocuments {
		return tmplDocumentGrounded
	}
	if hasContext {
		return tmplGeneralWithUploads
	}
	return tmplGeneralOnly
}

// BuildPrompt fills the selected template with the query and context block.
// Filling is pure string substitution; no conditional logic is delegated to
// the model beyond what the template instructions say.
func BuildPrompt(mode domain.Mode, query, context string) string {
	switch selectTemplate(mode, context != "") {
	case tmplDocumentGrounded:
		return fmt.Sprintf(documentGroundedPrompt, context, query)
	case tmplGeneralWithUploads:
		return fmt.Sprintf(generalWithUploadsPrompt, context, query)
	default:
		return fmt.Sprintf(generalOnlyPrompt, query)
	}
}
