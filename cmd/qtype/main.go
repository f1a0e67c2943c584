// Command qtype builds the answer type artifacts, populates the search
// indices and ranks DBpedia ontology types for natural language questions.
package main

func main() {
	Execute()
}
