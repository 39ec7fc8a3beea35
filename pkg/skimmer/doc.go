// Package skimmer classifies the sentences of a biomedical abstract into
// rhetorical roles (BACKGROUND, OBJECTIVE, METHODS, RESULTS, CONCLUSIONS)
// with a model trained by skimmer-train.
//
// Quick start:
//
//	s, err := skimmer.New(skimmer.WithModelRoot("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	res, _ := s.Classify(ctx, "Asthma is common. We randomised 40 adults. Symptoms fell by half.")
//	fmt.Println(res.Sections["METHODS"]) // [We randomised 40 adults.]
//
// A Skimmer is safe for concurrent use. Create once, reuse across requests.
package skimmer
