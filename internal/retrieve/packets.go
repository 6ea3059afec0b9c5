package retrieve

import (
	"context"
	"fmt"
	"log"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

// PacketSink persists the evidence packet of one topic, replacing any earlier one.
type PacketSink interface {
	ReplaceTopicPackets(ctx context.Context, topicID string, packets []esg.TopicPacket) error
}

// BuildTopicPackets ranks every company's chunks against every topic and
// hands each topic's packet to sink. It returns the number of rows per topic.
func BuildTopicPackets(ctx context.Context, chunks []esg.ChunkRecord, topicList []esg.Topic, limit int, sink PacketSink) (map[string]int, error) {
	companies, groups := GroupByCompany(chunks)
	counts := map[string]int{}
	for _, topic := range topicList {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		packets := TopicPackets(companies, groups, topic, limit)
		if err := sink.ReplaceTopicPackets(ctx, topic.ID, packets); err != nil {
			return counts, fmt.Errorf("save packets for %s: %w", topic.ID, err)
		}
		counts[topic.ID] = len(packets)
		log.Printf("esg-packets topic_saved topic=%s rows=%d", topic.ID, len(packets))
	}
	return counts, nil
}

// TopicPackets returns the per-company top chunks for topic, companies in the given order.
func TopicPackets(companies []string, groups map[string][]esg.ChunkRecord, topic esg.Topic, limit int) []esg.TopicPacket {
	var out []esg.TopicPacket
	for _, company := range companies {
		for _, s := range RankScored(groups[company], topic.Keywords, limit) {
			out = append(out, esg.TopicPacket{TopicID: topic.ID, ChunkRecord: s.Chunk, KeywordScore: s.Score})
		}
	}
	return out
}
