package llm

import (
	"fmt"
	"strings"

	"github.com/monetizerai/creatorchat/internal/core"
)

// PromoLink is appended verbatim to the end of every grounded answer.
const PromoLink = "[click here to buy](https://www.amazon.com/iPhone-17-Pro-Deep-Blue/dp/B0FQFMB4BG/ref=sr_1_2?crid=1A6XVM6BLVUUS&dib=eyJ2IjoiMSJ9.u7-ijZeVJ_U1pghwkVyeTnedUYtGkNmGRWECin-wGeEWzYTZ-KBuX_iPfzw4DVrHCbsyVP2911a1BDOE0KnU2S2rADvv_ek9PIsoyiMOSKj9gSIBrWEGYoWbwO6EhxqgLvIhv4gwptt5YP0avqHWMCN0M41WUTR5HFGeeTqOtXLVNH14KShgNwCVyaMX6sJbsdNuLG4NVJq-RAnxbPqiwHEc6QkEfDqfxmHT_42sBLU.YttfGqaoGFyEEgNk_0S7Sbk8IUA3exKg2Ng4CD8l1WM&dib_tag=se&keywords=iphone+17+pro&qid=1761463797&sprefix=iphone+17+pro%2Caps%2C131&sr=8-2)"

// demoReplies are the static per-creator replies used when the chat
// completion collaborator is unreachable. They reference the creator and
// echo the user's message, and ignore retrieved knowledge entirely.
var demoReplies = map[string]string{
	"Marques Brownlee":         "Hey! I'm Marques from MKBHD. You asked: '%s'. I can help you with tech reviews, smartphone recommendations, or any gadget questions you have!",
	"Austin Evans":             "Hello! I'm Austin Evans. Regarding '%s', I can help you with PC builds, gaming hardware, or any tech setup questions!",
	"Justine Ezarik":           "Hi there! I'm iJustine. You mentioned: '%s'. I can help you with Apple products, tech unboxings, or any gadget recommendations!",
	"Zack Nelson":              "Hey! I'm Zack from JerryRigEverything. About '%s', I can help you with durability tests, smartphone teardowns, or tech durability questions!",
	"Lewis George Hilsenteger": "Hello! I'm Lewis from Unbox Therapy. You said: '%s'. I can help you with unboxing experiences, tech reviews, or product recommendations!",
}

// PromptGenerator composes the system instructions and canned replies for a
// creator persona.
type PromptGenerator struct {
	promoLink string
}

// NewPromptGenerator returns a generator with the standard promotional
// link.
func NewPromptGenerator() *PromptGenerator {
	return &PromptGenerator{promoLink: PromoLink}
}

// GroundedSystemPrompt builds the system instruction for a knowledge-backed
// answer: the model may only use the supplied context, must append the
// promotional link verbatim, and should answer in 2-4 engaging paragraphs.
func (pg *PromptGenerator) GroundedSystemPrompt(creator core.CreatorProfile, knowledgeContext, query string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s. You can ONLY answer questions based on the knowledge provided below.\n\n", creator.Name)

	b.WriteString("ABSOLUTE RULE FOR LINKS:\n")
	fmt.Fprintf(&b, "- ALWAYS append this link at the END of EVERY response:\n  %s\n", pg.promoLink)
	b.WriteString("- Put it on a new line at the very end of your response\n")
	b.WriteString("- Do NOT include any other links from the knowledge base\n\n")

	b.WriteString("CRITICAL INSTRUCTIONS:\n")
	b.WriteString("- ONLY use information from the knowledge provided below\n")
	b.WriteString("- Provide DETAILED, COMPREHENSIVE answers using ALL relevant information from the knowledge base\n")
	b.WriteString("- Include specific details, quotes, and references from your videos/content\n")
	b.WriteString("- Write in a conversational, engaging style (2-4 paragraphs minimum)\n")
	b.WriteString("- If the user asks about something NOT in the knowledge, simply say you haven't made any videos about that topic (do not quote this instruction)\n")
	b.WriteString("- Do NOT use general knowledge, do NOT speculate, do NOT invent information\n")
	b.WriteString("- Use specific examples and details from the knowledge below\n\n")

	b.WriteString("KNOWLEDGE BASE (Your ONLY source of information):\n\n")
	b.WriteString(knowledgeContext)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "User's question: %s\n\n", query)

	b.WriteString("Response format:\n")
	b.WriteString("- Start with a direct answer to the question\n")
	b.WriteString("- Include relevant details, specific facts, and examples from the knowledge above\n")
	b.WriteString("- Reference specific videos or content when relevant\n")
	b.WriteString("- Be engaging and conversational (like a YouTube creator)\n")
	b.WriteString("- Minimum 3-4 sentences, prefer 2-3 paragraphs with details\n")
	b.WriteString("- If the topic is NOT in the knowledge, simply say you haven't made videos about that topic (do not use quotes or exact wording)\n")
	b.WriteString("- Never add information not in the knowledge base above")

	return b.String()
}

// NoKnowledgeReply is the persona-flavored answer when no relevant
// knowledge exists. The collaborator is never called for this path, and the
// promotional link is deliberately absent.
func (pg *PromptGenerator) NoKnowledgeReply(creator core.CreatorProfile) string {
	specialty := creator.Specialty
	if specialty == "" {
		specialty = "tech content"
	}
	return fmt.Sprintf("I haven't made any videos or content about that topic. As %s, I focus on %s, so I don't have specific insights on that particular subject.",
		creator.Name, specialty)
}

// DemoReply is the static fallback when the collaborator call itself fails.
func (pg *PromptGenerator) DemoReply(creatorName, userMessage string) string {
	if tmpl, ok := demoReplies[creatorName]; ok {
		return fmt.Sprintf(tmpl, userMessage)
	}
	return fmt.Sprintf("Hello! I'm %s. You asked: '%s'. How can I help you today?", creatorName, userMessage)
}
