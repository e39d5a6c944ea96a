// Package mcpserver exposes the assistant operations as MCP tools for the
// voice pipeline's tool dispatch. It serves over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/souschef/internal/assistant"
)

// Server wraps the MCP server with the SousChef tools.
type Server struct {
	mcp    *server.MCPServer
	a      *assistant.Assistant
	logger *slog.Logger
}

// New creates an MCP server with every assistant operation registered.
func New(a *assistant.Assistant, logger *slog.Logger) *Server {
	s := &Server{a: a, logger: logger}

	s.mcp = server.NewMCPServer(
		"SousChef",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(Instructions),
	)

	s.mcp.AddTool(mcp.NewTool("search_cookbook",
		mcp.WithDescription("Search the user's cookbook for recipes, techniques, or cooking information. "+
			"Use this when the user asks about a specific recipe or anything that might be in their cookbook."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for, e.g. 'chocolate cake recipe'")),
	), s.searchCookbook)

	s.mcp.AddTool(mcp.NewTool("search_recipes_by_ingredients",
		mcp.WithDescription("Find recipes in the cookbook that use the given ingredients."),
		mcp.WithString("ingredients", mcp.Required(), mcp.Description("Comma-separated ingredients, e.g. 'chicken, garlic, lemon'")),
	), s.searchRecipes)

	s.mcp.AddTool(mcp.NewTool("reload_cookbook",
		mcp.WithDescription("Re-index the uploaded cookbook documents. By default the rebuild runs in the background "+
			"and the assistant is asked to acknowledge it when done."),
		mcp.WithBoolean("wait", mcp.Description("Block until the rebuild finishes")),
	), s.reloadCookbook)

	s.mcp.AddTool(mcp.NewTool("clear_cookbook",
		mcp.WithDescription("Drop the cookbook index, optionally deleting the uploaded documents."),
		mcp.WithBoolean("delete_documents", mcp.Description("Also delete the uploaded documents")),
	), s.clearCookbook)

	s.mcp.AddTool(mcp.NewTool("generate_recipe_plan",
		mcp.WithDescription("Look up a recipe in the cookbook and turn it into a step-by-step cooking plan "+
			"shown on the user's display. Call this when the user wants to cook something."),
		mcp.WithString("recipe_query", mcp.Required(), mcp.Description("The recipe to plan, e.g. 'lasagna'")),
	), s.generatePlan)

	s.mcp.AddTool(mcp.NewTool("start_cooking_mode",
		mcp.WithDescription("Start guided cooking for the current recipe plan at step 1."),
	), s.startCooking)

	s.mcp.AddTool(mcp.NewTool("next_step",
		mcp.WithDescription("Mark the current step done and move to the next one."),
	), s.nextStep)

	s.mcp.AddTool(mcp.NewTool("previous_step",
		mcp.WithDescription("Go back to the previous step."),
	), s.previousStep)

	s.mcp.AddTool(mcp.NewTool("go_to_step",
		mcp.WithDescription("Jump to a specific step of the recipe."),
		mcp.WithNumber("step_number", mcp.Required(), mcp.Description("1-based step number"), mcp.Min(1)),
	), s.goToStep)

	s.mcp.AddTool(mcp.NewTool("set_timer",
		mcp.WithDescription("Set a kitchen timer on the user's display."),
		mcp.WithNumber("minutes", mcp.Required(), mcp.Description("Duration in minutes (1-120)"), mcp.Min(1), mcp.Max(120)),
		mcp.WithString("label", mcp.Description("What the timer is for, e.g. 'pasta'")),
	), s.setTimer)

	s.mcp.AddTool(mcp.NewTool("clear_timers",
		mcp.WithDescription("Cancel every running timer."),
	), s.clearTimers)

	s.mcp.AddTool(mcp.NewTool("add_to_shopping_list",
		mcp.WithDescription("Add items to the shopping list."),
		mcp.WithString("items", mcp.Required(), mcp.Description(
			"Comma-separated items as name|category|emoji|quantity, e.g. 'eggs|Dairy|🥚|12, flour|Baking|🌾|1'. "+
				"Only the name is required.")),
	), s.addShopping)

	s.mcp.AddTool(mcp.NewTool("remove_from_shopping_list",
		mcp.WithDescription("Remove items from the shopping list."),
		mcp.WithString("items", mcp.Required(), mcp.Description("Comma-separated item names")),
	), s.removeShopping)

	s.mcp.AddTool(mcp.NewTool("clear_shopping_list",
		mcp.WithDescription("Empty the shopping list."),
	), s.clearShopping)

	s.mcp.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Report the cookbook index, the cooking session, and the shopping list."),
	), s.getStatus)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the uploaded cookbook documents."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("upload_document",
		mcp.WithDescription("Save a cookbook document (PDF, text, or Markdown) from an http(s) URL or a base64 data URI, "+
			"then reload the cookbook."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadDocument)

	s.mcp.AddResource(
		mcp.NewResource("souschef://instructions", "Assistant Instructions",
			mcp.WithResourceDescription("Persona and conversation rules for the voice assistant."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readInstructions,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns a streamable HTTP transport for mounting on a router.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// respond renders a Result as the JSON text the voice pipeline reads. A
// failed operation is flagged as a tool error but keeps its message.
func respond(r assistant.Result) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := mcp.NewToolResultText(string(out))
	res.IsError = !r.Success
	return res, nil
}

func (s *Server) searchCookbook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.SearchCookbook(ctx, query))
}

func (s *Server) searchRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ingredients, err := req.RequireString("ingredients")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.SearchRecipes(ctx, ingredients))
}

func (s *Server) reloadCookbook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("wait", false) {
		return respond(s.a.ReloadCookbook(ctx))
	}
	return respond(s.a.ReloadCookbookAsync(ctx))
}

func (s *Server) clearCookbook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.ClearCookbook(ctx, req.GetBool("delete_documents", false)))
}

func (s *Server) generatePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("recipe_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.GeneratePlan(ctx, query))
}

func (s *Server) startCooking(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.StartCooking(ctx))
}

func (s *Server) nextStep(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.NextStep(ctx))
}

func (s *Server) previousStep(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.PreviousStep(ctx))
}

func (s *Server) goToStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := req.RequireInt("step_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.GoToStep(ctx, n))
}

func (s *Server) setTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minutes, err := req.RequireInt("minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.SetTimer(ctx, minutes, req.GetString("label", "")))
}

func (s *Server) clearTimers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.ClearTimers(ctx))
}

func (s *Server) addShopping(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := req.RequireString("items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.AddToShoppingList(ctx, items))
}

func (s *Server) removeShopping(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := req.RequireString("items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(s.a.RemoveFromShoppingList(ctx, items))
}

func (s *Server) clearShopping(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.ClearShoppingList(ctx))
}

func (s *Server) getStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(s.a.Status(ctx))
}

func (s *Server) listDocuments(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.a.Index().Store().List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(metas) == 0 {
		return mcp.NewToolResultText("no documents uploaded"), nil
	}
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readInstructions(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "souschef://instructions",
			MIMEType: "text/markdown",
			Text:     Instructions,
		},
	}, nil
}
