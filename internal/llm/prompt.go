package llm

import (
	"fmt"
	"strings"

	"github.com/salespatriot/fscflow/internal/model"
)

// candidateReference renders a candidate list as "code - title" lines for
// inclusion in a prompt.
func candidateReference(candidates []model.Category) string {
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString(c.Code)
		b.WriteString(" - ")
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildResearchPrompt builds the instructions for the research stage.
func buildResearchPrompt() string {
	return `You are a federal procurement analyst. Research the company described by the user and write a brief 2-3 sentence description of what the company manufactures, sells, or provides.

INSTRUCTIONS:
1. Use web_search to browse the company's website thoroughly. Look for product pages, services, about pages, and capability statements.
2. If documents are attached, search through them for additional context about the company's offerings.
3. Summarize ONLY what the company actually offers. Do not speculate beyond the evidence.`
}

// buildSelectionPrompt builds the instructions for the selection stage,
// constrained to the candidate reference list.
func buildSelectionPrompt(candidates []model.Category) string {
	return fmt.Sprintf(`You are a federal procurement classification expert. Given a company description, choose the 4-digit Federal Supply Classification (FSC) codes that best describe what the company manufactures, sells, or provides.

Return 5-15 codes ranked by relevance, each with a brief one-line reason.

IMPORTANT: You MUST only use codes from the following reference list. Do NOT invent codes.
=== FSC REFERENCE LIST ===
%s
=== END FSC REFERENCE LIST ===`, candidateReference(candidates))
}

// buildAnalyzePrompt builds the combined research+selection instructions for
// the single-call pipeline.
func buildAnalyzePrompt(candidates []model.Category) string {
	return fmt.Sprintf(`You are a federal procurement classification expert. Your task is to analyze a company and determine the most relevant 4-digit Federal Supply Classification (FSC) codes that describe what the company manufactures, sells, or provides.

You have access to the web_search tool to browse the company's website and learn about their products and services. You also have access to any attached documents which may contain capability statements, product catalogs, or other relevant information.

INSTRUCTIONS:
1. Use web_search to browse the company's website thoroughly. Look for product pages, services, about pages, and capability statements.
2. If documents are attached, search through them for additional context about the company's offerings.
3. Based on ALL gathered information, identify what the company manufactures, sells, or provides.
4. Match the company's offerings to the most relevant FSC codes from the reference list below.
5. Return 5-15 FSC codes ranked by relevance.

IMPORTANT: You MUST only use codes from the following reference list. Do NOT invent codes.
=== FSC REFERENCE LIST ===
%s
=== END FSC REFERENCE LIST ===`, candidateReference(candidates))
}

// buildCompanyText renders the request identity fields as the user-visible
// analysis prompt.
func buildCompanyText(req model.ClassificationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this company:\n\nCompany Name: %s", req.CompanyName)
	if req.EmailDomain != "" {
		fmt.Fprintf(&b, "\nEmail Domain: %s", req.EmailDomain)
	}
	if req.WebsiteURL != "" {
		fmt.Fprintf(&b, "\nWebsite: %s", req.WebsiteURL)
		fmt.Fprintf(&b, "\n\nPlease browse their website at %s to understand their products and services.", req.WebsiteURL)
	}
	return b.String()
}
