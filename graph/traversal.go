package graph

// EdgeFunc restituisce gli id raggiungibili da un nodo
type EdgeFunc func(id string) []string

// BFS visita il grafo in ampiezza a partire da start
// Restituisce l'ordine di visita e l'insieme dei nodi visitati.
// La stessa traversata serve sia per la reachability del parser
// che per l'ordinamento delle card del serializer.
func BFS(start string, edges EdgeFunc) ([]string, map[string]bool) {
	order := []string{}
	visited := map[string]bool{}

	if start == "" {
		return order, visited
	}

	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range edges(current) {
			if next == "" || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	return order, visited
}
