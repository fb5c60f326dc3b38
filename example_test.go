package conduit_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/pkg/domain"
)

// ExampleNew registers a small extension and executes its node in a session.
func ExampleNew() {
	greeter := domain.Extension{
		Name: "greeter",
		Nodes: []domain.NodeDescriptor{
			{
				Type:         "hello",
				DefaultLabel: "Say Hello",
				Fields:       []domain.Field{{Key: "name", Type: domain.FieldText, Default: "world"}},
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					inv.Say(fmt.Sprintf("Hello, %s!", inv.Config["name"]), nil)
					return nil
				},
			},
		},
	}

	host, err := conduit.New(conduit.WithExtensions(greeter))
	if err != nil {
		log.Fatal(err)
	}

	res, err := host.Execute(context.Background(), conduit.Request{
		SessionID: "example",
		Extension: "greeter",
		Node:      "hello",
		Config:    map[string]any{"name": "Ada"},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Outputs[0].Text)
	// Output:
	// Hello, Ada!
}

// ExampleHost_Match extracts a slot value with a pattern.
func ExampleHost_Match() {
	host, _ := conduit.New()
	res, err := host.Match(conduit.MatchRequest{
		Text:     "I would like to fly to Paris tomorrow",
		Patterns: []string{"fly to @city"},
		Slots:    map[string][]string{"city": {"Paris", "Rome"}},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Matches[0].Text, res.Matches[0].Slots["city"])
	// Output:
	// fly to Paris Paris
}
