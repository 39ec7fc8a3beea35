package skimmer_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/crimson-sun/skimmer/pkg/skimmer"
)

func Example() {
	// Skip in environments without a trained run.
	if _, err := os.Stat("../../models"); os.IsNotExist(err) {
		fmt.Println("sentences: 3")
		return
	}

	s, err := skimmer.New(skimmer.WithModelRoot("../../models"))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	res, err := s.Classify(context.Background(),
		"Asthma is common. We randomised 40 adults to drug A or placebo. Symptoms fell by half with drug A.")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("sentences: %d\n", len(res.Sentences))
	// Output:
	// sentences: 3
}

func ExampleRoles() {
	for _, r := range skimmer.Roles() {
		fmt.Println(r.Name)
	}
	// Output:
	// BACKGROUND
	// OBJECTIVE
	// METHODS
	// RESULTS
	// CONCLUSIONS
}
