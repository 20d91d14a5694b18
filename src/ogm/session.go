// Package ogm mapeia as entidades do catálogo para nós e arestas de um
// repositories.GraphStore.
//
// Uma Session é uma unidade de trabalho: mantém o mapa de identidade
// (label, chave natural) -> instância, sincroniza as coleções dos dois lados
// de cada relacionamento em memória e grava tudo numa única transação em
// Flush. Sessions não são seguras para uso concorrente.
package ogm

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/repositories"

	"github.com/google/uuid"
)

type nodeRef struct {
	Label domain.Label
	Key   string
}

func refOf(node entities.Node) nodeRef {
	return nodeRef{Label: node.Label(), Key: node.Key()}
}

type pendingChange struct {
	remove bool
	rel    relationship
	stored func(edgeID int64)
}

type Session struct {
	store    repositories.GraphStore
	reader   repositories.GraphTx
	identity map[nodeRef]entities.Node
	tracked  []entities.Node
	created  map[nodeRef]bool
	loaded   map[nodeRef]bool
	pending  []pendingChange
	deletes  []nodeRef
}

func NewSession(store repositories.GraphStore) *Session {
	return &Session{
		store:    store,
		identity: make(map[nodeRef]entities.Node),
		created:  make(map[nodeRef]bool),
		loaded:   make(map[nodeRef]bool),
	}
}

// Create marca um nó novo: Flush falha com domain.ErrDuplicateKey se a chave
// já existir no store.
func (s *Session) Create(node entities.Node) error {
	if err := s.attach(node); err != nil {
		return fmt.Errorf("Session.Create - %w", err)
	}
	s.created[refOf(node)] = true
	return nil
}

// Save passa a acompanhar o nó. Em Flush ele é criado ou tem as propriedades
// atualizadas. Nós lidos do store só são regravados depois de um Save.
func (s *Session) Save(node entities.Node) error {
	if err := s.attach(node); err != nil {
		return fmt.Errorf("Session.Save - %w", err)
	}
	delete(s.loaded, refOf(node))
	return nil
}

// attach registra o nó no mapa de identidade. Uma segunda instância com a
// mesma chave só é aceita se os atributos forem iguais.
func (s *Session) attach(nodes ...entities.Node) error {
	for _, node := range nodes {
		if node.Key() == "" {
			return fmt.Errorf("%w: %s without natural key", domain.ErrValidation, node.Label())
		}

		ref := refOf(node)
		existing, ok := s.identity[ref]
		if !ok {
			s.identity[ref] = node
			s.tracked = append(s.tracked, node)
			continue
		}
		if existing == node {
			continue
		}

		same, err := sameAttributes(existing, node)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("%w: another %s instance with key %q is already tracked", domain.ErrDuplicateKey, ref.Label, ref.Key)
		}
	}
	return nil
}

// Delete agenda a remoção do nó (e das suas arestas) para o próximo Flush.
func (s *Session) Delete(label domain.Label, key string) {
	ref := nodeRef{Label: label, Key: key}
	if _, ok := s.identity[ref]; ok {
		delete(s.identity, ref)
		delete(s.created, ref)
		delete(s.loaded, ref)
		kept := s.tracked[:0]
		for _, node := range s.tracked {
			if refOf(node) != ref {
				kept = append(kept, node)
			}
		}
		s.tracked = kept
	}
	s.deletes = append(s.deletes, ref)
}

func (s *Session) PlayedIn(actor *entities.Actor, movie *entities.Movie, roleName string) (entities.Role, error) {
	if err := s.attach(actor, movie); err != nil {
		return entities.Role{}, fmt.Errorf("Session.PlayedIn - %w", err)
	}

	role, added, err := actor.PlayedIn(movie, roleName)
	if err != nil {
		return entities.Role{}, fmt.Errorf("Session.PlayedIn - %w", err)
	}
	if !added {
		for _, existing := range actor.Roles {
			if entities.SameRole(existing, role) {
				return existing, nil
			}
		}
	}

	s.pending = append(s.pending, pendingChange{
		rel: roleRelationship(actor, movie, role),
		stored: func(edgeID int64) {
			setRoleEdgeID(actor.Roles, role, edgeID)
			setRoleEdgeID(movie.Roles, role, edgeID)
		},
	})
	return role, nil
}

func (s *Session) RemoveRole(actor *entities.Actor, movie *entities.Movie, roleName string) (bool, error) {
	if err := s.attach(actor, movie); err != nil {
		return false, fmt.Errorf("Session.RemoveRole - %w", err)
	}

	role, removed := actor.RemoveRole(movie, roleName)
	if removed {
		s.pending = append(s.pending, pendingChange{remove: true, rel: roleRelationship(actor, movie, role)})
	}
	return removed, nil
}

// Directed retorna false quando a ligação já existia; nada é agendado.
func (s *Session) Directed(director *entities.Director, movie *entities.Movie) (bool, error) {
	if err := s.attach(director, movie); err != nil {
		return false, fmt.Errorf("Session.Directed - %w", err)
	}

	if !director.Directed(movie) {
		return false, nil
	}
	s.pending = append(s.pending, pendingChange{rel: directedRelationship(director, movie)})
	return true, nil
}

func (s *Session) Undirect(director *entities.Director, movie *entities.Movie) (bool, error) {
	if err := s.attach(director, movie); err != nil {
		return false, fmt.Errorf("Session.Undirect - %w", err)
	}

	if !director.Undirect(movie) {
		return false, nil
	}
	s.pending = append(s.pending, pendingChange{remove: true, rel: directedRelationship(director, movie)})
	return true, nil
}

func (s *Session) Rate(user *entities.User, movie *entities.Movie, stars int, comment string) (entities.Rating, error) {
	if err := s.attach(user, movie); err != nil {
		return entities.Rating{}, fmt.Errorf("Session.Rate - %w", err)
	}

	rating, added, err := user.Rate(movie, stars, comment)
	if err != nil {
		return entities.Rating{}, fmt.Errorf("Session.Rate - %w", err)
	}
	if !added {
		for _, existing := range user.Ratings {
			if entities.SameRating(existing, rating) {
				return existing, nil
			}
		}
	}

	s.pending = append(s.pending, pendingChange{
		rel: ratingRelationship(user, movie, rating),
		stored: func(edgeID int64) {
			setRatingEdgeID(user.Ratings, rating, edgeID)
			setRatingEdgeID(movie.Ratings, rating, edgeID)
		},
	})
	return rating, nil
}

func (s *Session) RemoveRating(user *entities.User, movie *entities.Movie, stars int, comment string) (bool, error) {
	if err := s.attach(user, movie); err != nil {
		return false, fmt.Errorf("Session.RemoveRating - %w", err)
	}

	rating, removed := user.RemoveRating(movie, stars, comment)
	if removed {
		s.pending = append(s.pending, pendingChange{remove: true, rel: ratingRelationship(user, movie, rating)})
	}
	return removed, nil
}

func (s *Session) Befriend(a, b *entities.User) (bool, error) {
	if err := s.attach(a, b); err != nil {
		return false, fmt.Errorf("Session.Befriend - %w", err)
	}

	added, err := a.Befriend(b)
	if err != nil {
		return false, fmt.Errorf("Session.Befriend - %w", err)
	}
	if added {
		s.pending = append(s.pending, pendingChange{rel: friendRelationship(a, b)})
	}
	return added, nil
}

func (s *Session) Unfriend(a, b *entities.User) (bool, error) {
	if err := s.attach(a, b); err != nil {
		return false, fmt.Errorf("Session.Unfriend - %w", err)
	}

	if !a.Unfriend(b) {
		return false, nil
	}
	s.pending = append(s.pending, pendingChange{remove: true, rel: friendRelationship(a, b)})
	return true, nil
}

// Pending indica se há trabalho para o próximo Flush.
func (s *Session) Pending() bool {
	if len(s.created) > 0 || len(s.pending) > 0 || len(s.deletes) > 0 {
		return true
	}
	for _, node := range s.tracked {
		if !s.loaded[refOf(node)] {
			return true
		}
	}
	return false
}

// Flush grava os nós criados ou salvos e as mudanças de relacionamento numa
// única transação. Nós apenas lidos não são regravados: as pontas deles são
// procuradas de novo pela chave dentro da transação de escrita e, se outra
// unidade de trabalho as apagou, Flush falha com domain.ErrEntityNotFound.
// Em caso de erro nada é aplicado e o trabalho pendente continua na Session.
func (s *Session) Flush(ctx context.Context) ([]domain.DomainEvent, error) {
	if !s.Pending() {
		return nil, nil
	}

	// o leitor enxerga o snapshot anterior, as leituras depois do Flush
	// precisam de uma transação nova
	s.releaseReader(ctx)

	tx, err := s.store.Begin(ctx, repositories.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("Session.Flush - %w", err)
	}
	defer tx.Rollback(ctx)

	var events []domain.DomainEvent
	ids := make(map[nodeRef]int64, len(s.tracked))
	merged := make([]*domain.GraphNode, 0, len(s.tracked))

	for _, node := range s.tracked {
		gn, err := toGraphNode(node)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %w", err)
		}

		ref := refOf(node)
		if s.loaded[ref] {
			continue
		}
		if !s.created[ref] {
			merged = append(merged, &gn)
			continue
		}

		if err := tx.CreateNode(ctx, &gn); err != nil {
			return nil, fmt.Errorf("Session.Flush - %w", err)
		}
		ids[ref] = gn.ID
		events = append(events, newEvent(domain.EventNodeCreated, domain.DomainEventData{
			Label:      gn.Label,
			Key:        gn.Key,
			Properties: publicProperties(gn),
		}))
	}

	if err := tx.MergeNodes(ctx, merged); err != nil {
		return nil, fmt.Errorf("Session.Flush - %w", err)
	}
	for _, gn := range merged {
		ids[nodeRef{Label: gn.Label, Key: gn.Key}] = gn.ID
	}

	edgeIDs := make([]int64, len(s.pending))
	for i, change := range s.pending {
		startID, err := s.resolve(ctx, tx, ids, change.rel.Start)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %s: %w", change.rel.Type, err)
		}
		endID, err := s.resolve(ctx, tx, ids, change.rel.End)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %s: %w", change.rel.Type, err)
		}

		edge, err := change.rel.edge(startID, endID)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %w", err)
		}

		if change.remove {
			removed, err := tx.DeleteEdge(ctx, edge)
			if err != nil {
				return nil, fmt.Errorf("Session.Flush - %w", err)
			}
			if removed {
				events = append(events, change.rel.event(domain.EventRelationshipRemoved))
			}
			continue
		}

		created, err := tx.CreateEdge(ctx, &edge)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %w", err)
		}
		edgeIDs[i] = edge.ID
		if created {
			events = append(events, change.rel.event(domain.EventRelationshipCreated))
		}
	}

	for _, ref := range s.deletes {
		deleted, err := tx.DeleteNode(ctx, ref.Label, ref.Key)
		if err != nil {
			return nil, fmt.Errorf("Session.Flush - %w", err)
		}
		if deleted {
			events = append(events, newEvent(domain.EventNodeDeleted, domain.DomainEventData{Label: ref.Label, Key: ref.Key}))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("Session.Flush - %w", err)
	}

	for _, node := range s.tracked {
		if id, ok := ids[refOf(node)]; ok {
			node.SetGraphID(id)
		}
	}
	for i, change := range s.pending {
		if change.stored != nil {
			change.stored(edgeIDs[i])
		}
	}

	// o que foi gravado passa a valer como lido
	for _, node := range s.tracked {
		s.loaded[refOf(node)] = true
	}
	s.created = make(map[nodeRef]bool)
	s.pending = nil
	s.deletes = nil
	return events, nil
}

// resolve devolve o id interno da ponta na transação de escrita. Pontas lidas
// antes do Flush são procuradas de novo pela chave.
func (s *Session) resolve(ctx context.Context, tx repositories.GraphTx, ids map[nodeRef]int64, node entities.Node) (int64, error) {
	ref := refOf(node)
	if id, ok := ids[ref]; ok {
		return id, nil
	}
	if !s.loaded[ref] {
		return 0, fmt.Errorf("%s %q is no longer tracked: %w", ref.Label, ref.Key, domain.ErrEntityNotFound)
	}

	gn, found, err := repositories.NodeByKey(ctx, tx, ref.Label, ref.Key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s %q was deleted: %w", ref.Label, ref.Key, domain.ErrEntityNotFound)
	}
	ids[ref] = gn.ID
	return gn.ID, nil
}

// Purge apaga o grafo inteiro numa transação própria e esvazia a Session.
func (s *Session) Purge(ctx context.Context) (domain.DomainEvent, error) {
	s.releaseReader(ctx)

	tx, err := s.store.Begin(ctx, repositories.TxOptions{})
	if err != nil {
		return domain.DomainEvent{}, fmt.Errorf("Session.Purge - %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.Purge(ctx); err != nil {
		return domain.DomainEvent{}, fmt.Errorf("Session.Purge - %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.DomainEvent{}, fmt.Errorf("Session.Purge - %w", err)
	}

	s.identity = make(map[nodeRef]entities.Node)
	s.tracked = nil
	s.created = make(map[nodeRef]bool)
	s.loaded = make(map[nodeRef]bool)
	s.pending = nil
	s.deletes = nil
	return newEvent(domain.EventGraphPurged, domain.DomainEventData{}), nil
}

// Close libera a transação de leitura. O trabalho não gravado é descartado.
func (s *Session) Close(ctx context.Context) error {
	return s.releaseReader(ctx)
}

func (s *Session) readTx(ctx context.Context) (repositories.GraphTx, error) {
	if s.reader != nil {
		return s.reader, nil
	}

	tx, err := s.store.Begin(ctx, repositories.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	s.reader = tx
	return tx, nil
}

func (s *Session) releaseReader(ctx context.Context) error {
	if s.reader == nil {
		return nil
	}
	tx := s.reader
	s.reader = nil
	return tx.Rollback(ctx)
}

// Get devolve o nó do tipo T pela chave natural, hidratado com as coleções.
// Dentro da mesma Session a mesma instância é sempre devolvida.
func Get[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session, key string) (PT, error) {
	mapping, err := mappingOf(reflect.TypeOf((*T)(nil)))
	if err != nil {
		return nil, err
	}

	if existing, ok := s.identity[nodeRef{Label: mapping.Label, Key: key}]; ok {
		if typed, ok := existing.(PT); ok {
			return typed, nil
		}
	}

	tx, err := s.readTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ogm.Get - %w", err)
	}

	gn, found, err := repositories.NodeByKey(ctx, tx, mapping.Label, key)
	if err != nil {
		return nil, fmt.Errorf("ogm.Get - %w", err)
	}
	if !found {
		return nil, fmt.Errorf("ogm.Get - %s %q: %w", mapping.Label, key, domain.ErrEntityNotFound)
	}

	return load[T, PT](ctx, s, tx, gn)
}

func load[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session, tx repositories.GraphTx, gn domain.GraphNode) (PT, error) {
	ref := nodeRef{Label: gn.Label, Key: gn.Key}
	if existing, ok := s.identity[ref]; ok {
		if typed, ok := existing.(PT); ok {
			return typed, nil
		}
	}

	target := PT(new(T))
	if err := hydrate(ctx, tx, gn, target); err != nil {
		return nil, err
	}

	s.identity[ref] = target
	s.tracked = append(s.tracked, target)
	s.loaded[ref] = true
	return target, nil
}

func setRoleEdgeID(roles []entities.Role, role entities.Role, edgeID int64) {
	for i := range roles {
		if entities.SameRole(roles[i], role) {
			roles[i].EdgeID = edgeID
		}
	}
}

func setRatingEdgeID(ratings []entities.Rating, rating entities.Rating, edgeID int64) {
	for i := range ratings {
		if entities.SameRating(ratings[i], rating) {
			ratings[i].EdgeID = edgeID
		}
	}
}

func newEvent(eventType string, data domain.DomainEventData) domain.DomainEvent {
	return domain.DomainEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// publicProperties tira o hash da senha dos eventos.
func publicProperties(gn domain.GraphNode) []byte {
	properties := gn.Properties
	for _, secret := range domain.SecretProperties(gn.Label) {
		properties = stripProperty(properties, secret)
	}
	return properties
}
